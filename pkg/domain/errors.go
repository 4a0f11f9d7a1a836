package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownID is returned when an id is not (or no longer) tracked.
	ErrUnknownID = errors.New("unknown node id")

	// ErrMissingChild is returned when a descriptor reports a child count but
	// yields no object for one of the implied indexes.
	ErrMissingChild = errors.New("missing required child")

	// ErrTouchContract is returned when a hit-test descriptor calls neither or
	// both of Finish and ContinueWithOffset.
	ErrTouchContract = errors.New("hit test contract violated")

	// ErrNotMutable is returned by descriptors that do not accept setData.
	ErrNotMutable = errors.New("value is not mutable")

	// ErrInvalidPath is returned when a setData path does not address a property.
	ErrInvalidPath = errors.New("invalid value path")

	// ErrInvalidParams is returned when a command's params cannot be decoded.
	ErrInvalidParams = errors.New("invalid params")

	// ErrUnknownMethod is returned for commands the session does not serve.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrSessionClosed is returned for commands received after Disconnect.
	ErrSessionClosed = errors.New("session closed")

	// ErrLeaseHeld is returned when another controller owns the host.
	ErrLeaseHeld = errors.New("controller lease held by another connection")

	// ErrLeaseLost is returned when a held lease expired before it was extended.
	ErrLeaseLost = errors.New("controller lease lost")
)

// DescriptorError wraps a failure raised inside a descriptor invocation,
// whether it was returned or recovered from a panic.
type DescriptorError struct {
	Op    string // descriptor operation, e.g. "data", "childAt"
	Type  string // runtime type of the described object
	Err   error
	Stack string
}

func (e *DescriptorError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("descriptor %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("descriptor %s on %s: %v", e.Op, e.Type, e.Err)
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// ErrorResponse is the wire shape of a failed command.
type ErrorResponse struct {
	Message    string `json:"message"`
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

func (e ErrorResponse) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s (id=%s)", e.Message, e.ID)
	}
	return e.Message
}

// NewErrorResponse builds the wire error for err, naming the offending id if known.
func NewErrorResponse(err error, id string) ErrorResponse {
	resp := ErrorResponse{Message: err.Error(), ID: id, Name: errorName(err)}
	var de *DescriptorError
	if errors.As(err, &de) {
		resp.Stacktrace = de.Stack
	}
	return resp
}

func errorName(err error) string {
	switch {
	case errors.Is(err, ErrUnknownID):
		return "UnknownID"
	case errors.Is(err, ErrMissingChild):
		return "MissingChild"
	case errors.Is(err, ErrTouchContract):
		return "TouchContract"
	case errors.Is(err, ErrNotMutable), errors.Is(err, ErrInvalidPath):
		return "InvalidMutation"
	case errors.Is(err, ErrInvalidParams):
		return "InvalidParams"
	case errors.Is(err, ErrUnknownMethod):
		return "UnknownMethod"
	case errors.Is(err, ErrSessionClosed):
		return "SessionClosed"
	case errors.Is(err, ErrLeaseHeld), errors.Is(err, ErrLeaseLost):
		return "LeaseUnavailable"
	}
	var de *DescriptorError
	if errors.As(err, &de) {
		return "DescriptorError"
	}
	return "Error"
}
