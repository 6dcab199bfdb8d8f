package archive

import (
	"context"

	"github.com/anusthan12/owntracker/module/core/domain"
)

// LocationArchive is a write-only audit log of accepted samples.
type LocationArchive interface {
	Insert(ctx context.Context, loc *domain.DeviceLocation) error
}
