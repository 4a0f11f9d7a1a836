package websocket

import (
	"encoding/json"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// EventReportError carries non-fatal host errors to the controller. Its params
// are a domain.ErrorResponse.
const EventReportError = "reportError"

// Frame is one JSON message on the socket.
//
// A command carries ID, Method and Params. Its answer carries the same ID and
// exactly one of Success or Error. A push event carries Method and Params only.
type Frame struct {
	ID      string                `json:"id,omitempty"`
	Method  string                `json:"method,omitempty"`
	Params  json.RawMessage       `json:"params,omitempty"`
	Success json.RawMessage       `json:"success,omitempty"`
	Error   *domain.ErrorResponse `json:"error,omitempty"`
}

// IsResponse reports whether f answers a command.
func (f *Frame) IsResponse() bool {
	return f.ID != "" && f.Method == ""
}
