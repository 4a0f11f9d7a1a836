// Package redis shares inspector state across replicas: push events over
// pub/sub, the controller lease and tree dumps.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultChannel carries push events when no channel is configured.
const DefaultChannel = "inspector:events"

// Publisher mirrors push events to a pub/sub channel.
type Publisher struct {
	client  backend.UniversalClient
	channel string
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher publishes on channel, or DefaultChannel when empty.
func NewPublisher(client backend.UniversalClient, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish implements ports.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, ev *domain.PushEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", ev.Method, err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", ev.Method, err)
	}
	return nil
}

// Subscriber receives the events of every publisher on a channel.
type Subscriber struct {
	client  backend.UniversalClient
	channel string
	logger  *slog.Logger
}

var _ ports.EventSubscriber = (*Subscriber)(nil)

// NewSubscriber listens on channel, or DefaultChannel when empty.
func NewSubscriber(client backend.UniversalClient, channel string, logger *slog.Logger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Subscriber{client: client, channel: channel, logger: logger}
}

// Subscribe implements ports.EventSubscriber. Params arrive as json.RawMessage.
// The subscription is confirmed before Subscribe returns.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan domain.PushEvent, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}

	out := make(chan domain.PushEvent, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var wire struct {
					domain.EventBase
					Method string          `json:"method"`
					Params json.RawMessage `json:"params"`
				}
				if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
					s.logger.Warn("Dropping malformed event", "channel", s.channel, "err", err)
					continue
				}
				ev := domain.PushEvent{EventBase: wire.EventBase, Method: wire.Method, Params: wire.Params}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
