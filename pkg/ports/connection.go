package ports

import "github.com/facebook/flipper-sub000/pkg/domain"

// Responder answers exactly one command. Only the first call has an effect.
type Responder interface {
	Success(result any)
	Error(resp domain.ErrorResponse)
}

// Receiver handles one command. params is the decoded JSON request object,
// never nil.
type Receiver func(params map[string]any, r Responder)

// Connection is the channel to one remote controller.
//
// Receivers may be invoked from any goroutine. A command whose method has no
// receiver must be answered with an error named "UnknownMethod".
type Connection interface {
	// Send pushes an unsolicited event. It does not wait for acknowledgement.
	Send(method string, params any) error
	// Receive registers the handler for method, replacing any previous one.
	Receive(method string, fn Receiver)
	// ReportError forwards a non-fatal failure to the controller.
	ReportError(err error)
}
