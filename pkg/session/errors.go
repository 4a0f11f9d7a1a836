package session

import (
	"errors"
	"fmt"

	"github.com/facebook/flipper-sub000/pkg/domain"
)

// Error is a failed command. ID names the node the failure is about, if any.
type Error struct {
	Method string
	ID     string
	Err    error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Method, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Response converts err into its wire form.
func Response(err error) domain.ErrorResponse {
	var se *Error
	if errors.As(err, &se) {
		return domain.NewErrorResponse(se.Err, se.ID)
	}
	return domain.NewErrorResponse(err, "")
}
