package history

import (
	"github.com/anusthan12/owntracker/module/core/domain"
)

// Store keeps a bounded, append-ordered history of samples per device.
type Store interface {
	// Append adds loc to the device history and returns how many of the
	// oldest samples were dropped to stay within the limit.
	Append(deviceID string, loc domain.Location) (int, error)
	Get(deviceID string) []domain.Location
	Latest(deviceID string) (domain.Location, bool)
	Devices() []domain.Device
	Count() int
}
