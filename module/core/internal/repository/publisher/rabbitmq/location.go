package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/anusthan12/owntracker/module/core/domain"
	"github.com/anusthan12/owntracker/module/core/events"
	"github.com/anusthan12/owntracker/module/core/internal/repository/publisher"
)

var _ publisher.LocationPublisher = (*LocationPublisher)(nil)

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type LocationPublisher struct {
	ch  channel
	now func() time.Time
}

func NewLocationPublisher(conn *amqp.Connection) (*LocationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := events.DeclareTopology(ch); err != nil {
		return nil, err
	}

	return &LocationPublisher{ch: ch, now: time.Now}, nil
}

func (p *LocationPublisher) PublishLocation(ctx context.Context, loc *domain.DeviceLocation) error {
	msg := events.LocationEvent{
		Event:      events.LocationRecorded,
		DeviceID:   loc.DeviceID,
		Latitude:   loc.Location.Lat,
		Longitude:  loc.Location.Lon,
		Timestamp:  loc.Location.Timestamp,
		RecordedAt: p.now().Unix(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return p.ch.PublishWithContext(ctx, events.ExchangeName, "", false, false, amqp.Publishing{
		ContentType: events.ContentTypeJSON,
		Type:        events.LocationRecorded,
		Body:        body,
	})
}
