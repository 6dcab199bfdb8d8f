package publisher

import (
	"context"

	"github.com/anusthan12/owntracker/module/core/domain"
)

type LocationPublisher interface {
	PublishLocation(ctx context.Context, loc *domain.DeviceLocation) error
}
