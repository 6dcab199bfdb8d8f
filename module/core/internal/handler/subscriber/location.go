package subscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/anusthan12/owntracker/module/core/domain"
)

const DefaultTopic = "owntracker/device/+/location"

var errInvalidFix = errors.New("nmea: no valid fix")

type locationService interface {
	Record(ctx context.Context, source domain.Source, report *domain.LocationReport) error
}

type LocationSubscriber struct {
	topic       string
	qos         byte
	locationSvc locationService
	logger      zerolog.Logger
}

func NewLocationSubscriber(topic string, locationSvc locationService, logger zerolog.Logger) *LocationSubscriber {
	if topic == "" {
		topic = DefaultTopic
	}
	return &LocationSubscriber{
		topic:       topic,
		qos:         1,
		locationSvc: locationSvc,
		logger:      logger,
	}
}

// OnConnect is installed as the client's OnConnectHandler. The broker drops
// subscriptions of a clean session, so every (re)connect subscribes again.
func (s *LocationSubscriber) OnConnect(client mqtt.Client) {
	if err := s.Subscribe(client); err != nil {
		s.logger.Error().Err(err).Msg("location subscriber not active")
	}
}

func (s *LocationSubscriber) Subscribe(client mqtt.Client) error {
	token := client.Subscribe(s.topic, s.qos, s.handleMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	s.logger.Info().Str("topic", s.topic).Msg("location subscriber started")
	return nil
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	report, err := decodePayload(msg.Payload())
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("invalid location message")
		return
	}
	if report.DeviceID == "" {
		report.DeviceID = deviceIDFromTopic(msg.Topic())
	}

	if err := s.locationSvc.Record(context.Background(), domain.SourceMQTT, report); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("location rejected")
	}
}

// deviceIDFromTopic returns the segment before the trailing "location" level.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

func decodePayload(payload []byte) (*domain.LocationReport, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '$' {
		return decodeNMEA(string(payload))
	}

	var report domain.LocationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return &report, nil
}

func decodeNMEA(raw string) (*domain.LocationReport, error) {
	sentence, err := nmea.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode nmea: %w", err)
	}

	switch m := sentence.(type) {
	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return nil, errInvalidFix
		}
		report := &domain.LocationReport{Latitude: &m.Latitude, Longitude: &m.Longitude}
		if m.Date.Valid && m.Time.Valid {
			ts := time.Date(fullYear(m.Date.YY), time.Month(m.Date.MM), m.Date.DD,
				m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
			report.Timestamp = ts.Format(domain.TimestampLayout)
		}
		return report, nil
	case nmea.GGA:
		if m.FixQuality == nmea.Invalid {
			return nil, errInvalidFix
		}
		return &domain.LocationReport{Latitude: &m.Latitude, Longitude: &m.Longitude}, nil
	default:
		return nil, fmt.Errorf("decode nmea: unsupported sentence %s", sentence.DataType())
	}
}

// fullYear expands the two digit NMEA year, pivoting at 1970.
func fullYear(yy int) int {
	if yy < 70 {
		return 2000 + yy
	}
	return 1900 + yy
}
