package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

const (
	relayBuffer  = 256
	relayTimeout = 5 * time.Second
)

// relay publishes push events in order on its own goroutine so the owner
// context never blocks on the network. Events are dropped when it falls behind.
type relay struct {
	pubs   []ports.EventPublisher
	events chan *domain.PushEvent
	done   chan struct{}
	logger *slog.Logger
}

func newRelay(pubs []ports.EventPublisher, logger *slog.Logger) *relay {
	r := &relay{
		pubs:   pubs,
		events: make(chan *domain.PushEvent, relayBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go r.run()
	return r
}

func (r *relay) run() {
	defer close(r.done)
	for ev := range r.events {
		for _, pub := range r.pubs {
			ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
			if err := pub.Publish(ctx, ev); err != nil {
				r.logger.Warn("Failed to publish event", "method", ev.Method, "err", err)
			}
			cancel()
		}
	}
}

func (r *relay) publish(ev *domain.PushEvent) {
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("Publish queue full, dropping event", "method", ev.Method)
	}
}

// Close flushes queued events and stops the goroutine.
func (r *relay) Close() {
	close(r.events)
	<-r.done
}
