package ports

import (
	"context"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// EventPublisher mirrors session push events outside the process.
type EventPublisher interface {
	Publish(ctx context.Context, ev *domain.PushEvent) error
}

// EventSubscriber delivers events published by any replica.
// The channel is closed when ctx ends.
type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.PushEvent, error)
}
