package session

import (
	"log/slog"
	"time"

	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id. Defaults to a random UUID.
func WithID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithOverlay sets the surface installed by setSearchActive.
func WithOverlay(o ports.Overlay) Option {
	return func(s *Session) {
		s.overlay = o
	}
}

// WithTreeSelect makes select events carry the nested {tree, path} form.
func WithTreeSelect(enabled bool) Option {
	return func(s *Session) {
		s.treeSelect = enabled
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(s *Session) {
		s.hooks = h
	}
}

// WithPublisher mirrors push events to p. It may be given more than once.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *Session) {
		if p != nil {
			s.publishers = append(s.publishers, p)
		}
	}
}

// WithPollInterval enables the structural change poller. It requires an
// executor that can schedule periodic work, such as *owner.Loop.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		s.pollInterval = d
	}
}
