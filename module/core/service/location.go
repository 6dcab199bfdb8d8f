package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/anusthan12/owntracker/module/core/domain"
	"github.com/anusthan12/owntracker/module/core/internal/repository/archive"
	"github.com/anusthan12/owntracker/module/core/internal/repository/history"
	"github.com/anusthan12/owntracker/module/core/internal/repository/publisher"
	"github.com/anusthan12/owntracker/module/core/metrics"
)

const (
	sinkArchive   = "archive"
	sinkPublisher = "publisher"

	DefaultSinkTimeout = 5 * time.Second
)

// Sinks receive every accepted sample after it is stored. Both are optional.
// Timeout bounds the whole fan-out of one sample; zero means DefaultSinkTimeout.
type Sinks struct {
	Archive   archive.LocationArchive
	Publisher publisher.LocationPublisher
	Timeout   time.Duration
}

type LocationService struct {
	store     history.Store
	sinks     Sinks
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	allowZero bool
	now       func() time.Time
}

// NewLocationService builds the service around store. With allowZero false a
// latitude or longitude of exactly 0 is treated as missing, which rejects
// real positions on the equator or the prime meridian. Existing clients rely
// on that rejection, so it stays the default.
func NewLocationService(store history.Store, sinks Sinks, m *metrics.Metrics, logger zerolog.Logger, allowZero bool) *LocationService {
	if sinks.Timeout <= 0 {
		sinks.Timeout = DefaultSinkTimeout
	}
	return &LocationService{
		store:     store,
		sinks:     sinks,
		metrics:   m,
		logger:    logger,
		allowZero: allowZero,
		now:       time.Now,
	}
}

func (s *LocationService) Record(ctx context.Context, source domain.Source, report *domain.LocationReport) error {
	if err := s.validate(report); err != nil {
		s.metrics.RecordValidationFailure(source)
		return err
	}

	loc := &domain.DeviceLocation{
		DeviceID: report.DeviceID,
		Location: domain.Location{
			Lat:       *report.Latitude,
			Lon:       *report.Longitude,
			Timestamp: report.Timestamp,
		},
	}
	if loc.Location.Timestamp == "" {
		loc.Location.Timestamp = s.now().UTC().Format(domain.TimestampLayout)
	}

	evicted, err := s.store.Append(loc.DeviceID, loc.Location)
	if err != nil {
		return fmt.Errorf("append location: %w", err)
	}
	s.metrics.RecordSample(source, evicted, s.store.Count())

	s.fanOut(ctx, loc)
	return nil
}

// fanOut outlives the caller's cancellation, since the sample is already
// stored, but never runs past the sink timeout.
func (s *LocationService) fanOut(parent context.Context, loc *domain.DeviceLocation) {
	if s.sinks.Archive == nil && s.sinks.Publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.sinks.Timeout)
	defer cancel()

	if s.sinks.Archive != nil {
		if err := s.sinks.Archive.Insert(ctx, loc); err != nil {
			s.metrics.RecordSinkError(sinkArchive)
			s.logger.Warn().Err(err).Str("device_id", loc.DeviceID).Msg("archive location failed")
		}
	}
	if s.sinks.Publisher != nil {
		if err := s.sinks.Publisher.PublishLocation(ctx, loc); err != nil {
			s.metrics.RecordSinkError(sinkPublisher)
			s.logger.Warn().Err(err).Str("device_id", loc.DeviceID).Msg("publish location failed")
		}
	}
}

func (s *LocationService) History(_ context.Context, deviceID string) []domain.Location {
	return s.store.Get(deviceID)
}

func (s *LocationService) Latest(_ context.Context, deviceID string) (*domain.Location, error) {
	loc, ok := s.store.Latest(deviceID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &loc, nil
}

func (s *LocationService) Devices(_ context.Context) []domain.Device {
	return s.store.Devices()
}

func (s *LocationService) validate(r *domain.LocationReport) error {
	if r == nil {
		return domain.ErrValidation
	}
	if r.DeviceID == "" {
		return fmt.Errorf("deviceId: %w", domain.ErrValidation)
	}
	if !s.present(r.Latitude) {
		return fmt.Errorf("latitude: %w", domain.ErrValidation)
	}
	if !s.present(r.Longitude) {
		return fmt.Errorf("longitude: %w", domain.ErrValidation)
	}
	return nil
}

func (s *LocationService) present(v *float64) bool {
	if v == nil {
		return false
	}
	return s.allowZero || *v != 0
}
