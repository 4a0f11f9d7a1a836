package domain

import (
	"context"
	"time"
)

// EventType defines the category of a session lifecycle event.
type EventType string

const (
	EventCommand EventType = "command"
	EventPush    EventType = "push"
	EventAttach  EventType = "attach"
	EventDetach  EventType = "detach"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// CommandEvent describes one handled command.
type CommandEvent struct {
	EventBase
	Method   string        `json:"method"`
	Duration time.Duration `json:"duration"`
	Tracked  int           `json:"tracked"`
	Err      error         `json:"-"`
}

// PushEvent describes one unsolicited message sent to the controller.
type PushEvent struct {
	EventBase
	Method string `json:"method"`
	Params any    `json:"params"`
}

// LifecycleHooks defines callbacks for session observability.
// Hooks run synchronously on the owner goroutine and must not block.
type LifecycleHooks struct {
	OnAttach  func(context.Context, *EventBase)
	OnDetach  func(context.Context, *EventBase)
	OnCommand func(context.Context, *CommandEvent)
	OnPush    func(context.Context, *PushEvent)
	OnError   func(context.Context, error)
}
