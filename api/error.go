// Package api holds the types shared between the server and its clients.
package api

import "fmt"

// Error is the body of any non-2xx response.
type Error struct {
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
	Status  int           `json:"status,omitempty"`

	// Set on a 409 for a url that's already stored
	ID string `json:"id,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

func (e Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Details)
}

// Invalid collects field details into a single request error.
func Invalid(details []ErrorDetail) error {
	if len(details) == 0 {
		return nil
	}

	return Error{
		Message: "request was invalid",
		Details: details,
	}
}
