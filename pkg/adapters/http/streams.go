package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/facebook/flipper-sub000/internal/logging"
	"github.com/facebook/flipper-sub000/pkg/domain"
	"github.com/facebook/flipper-sub000/pkg/ports"
)

// anySession subscribes to the events of every session.
const anySession = ""

// Message is one server-sent event.
type Message struct {
	SessionID string
	Method    string
	Data      []byte
}

// StreamManager fans push events out to SSE subscribers. It is the
// EventPublisher sessions mirror their pushes to.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Message]struct{} // session id -> channels
	logger      *slog.Logger
}

var _ ports.EventPublisher = (*StreamManager)(nil)

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan Message]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for sessionID, or for every session when
// sessionID is empty. The returned func unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 64)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan Message]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Subscribers returns how many subscribers are registered for sessionID.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Publish implements ports.EventPublisher.
func (sm *StreamManager) Publish(ctx context.Context, ev *domain.PushEvent) error {
	data, err := json.Marshal(ev.Params)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Method, err)
	}
	sm.Broadcast(Message{SessionID: ev.SessionID, Method: ev.Method, Data: data})
	return nil
}

// Broadcast delivers msg to the subscribers of its session and to the
// subscribers of every session. Slow subscribers lose messages.
func (sm *StreamManager) Broadcast(msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	keys := []string{msg.SessionID}
	if msg.SessionID != anySession {
		keys = append(keys, anySession)
	}
	for _, key := range slices.Compact(keys) {
		for ch := range sm.subscribers[key] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", msg.SessionID, "method", msg.Method)
			}
		}
	}
}
