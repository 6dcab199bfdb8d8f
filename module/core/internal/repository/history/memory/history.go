package memory

import (
	"errors"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/anusthan12/owntracker/module/core/domain"
	"github.com/anusthan12/owntracker/module/core/internal/repository/history"
)

var _ history.Store = (*HistoryStore)(nil)

const DefaultLimit = 100

var errEmptyDeviceID = errors.New("device id: required")

// HistoryStore holds the last limit samples of every device in process
// memory. Stored slices are replaced, never mutated, so readers can share
// them without holding a lock.
type HistoryStore struct {
	limit   int
	devices cmap.ConcurrentMap[string, []domain.Location]
}

func NewHistoryStore(limit int) *HistoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &HistoryStore{
		limit:   limit,
		devices: cmap.New[[]domain.Location](),
	}
}

func (s *HistoryStore) Limit() int {
	return s.limit
}

func (s *HistoryStore) Append(deviceID string, loc domain.Location) (int, error) {
	if deviceID == "" {
		return 0, errEmptyDeviceID
	}

	evicted := 0
	s.devices.Upsert(deviceID, []domain.Location{loc}, func(exist bool, current, added []domain.Location) []domain.Location {
		if !exist {
			return added
		}
		start := 0
		if n := len(current) + len(added); n > s.limit {
			start = n - s.limit
			evicted = start
		}
		next := make([]domain.Location, 0, len(current)-start+len(added))
		next = append(next, current[start:]...)
		return append(next, added...)
	})
	return evicted, nil
}

func (s *HistoryStore) Get(deviceID string) []domain.Location {
	locs, ok := s.devices.Get(deviceID)
	if !ok {
		return []domain.Location{}
	}
	out := make([]domain.Location, len(locs))
	copy(out, locs)
	return out
}

func (s *HistoryStore) Latest(deviceID string) (domain.Location, bool) {
	locs, ok := s.devices.Get(deviceID)
	if !ok || len(locs) == 0 {
		return domain.Location{}, false
	}
	return locs[len(locs)-1], true
}

func (s *HistoryStore) Devices() []domain.Device {
	items := s.devices.Items()
	out := make([]domain.Device, 0, len(items))
	for id, locs := range items {
		out = append(out, domain.Device{DeviceID: id, Samples: len(locs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

func (s *HistoryStore) Count() int {
	return s.devices.Count()
}
