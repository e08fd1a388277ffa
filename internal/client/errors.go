package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrTransport is returned when no response was received.
	ErrTransport = errors.New("transport failure")

	// ErrUnauthorized is returned for 401 responses (missing, invalid or expired token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned for 4xx responses other than 401 and 404.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")

	// ErrServer is returned for 5xx responses.
	ErrServer = errors.New("server failure")

	// ErrDecode is returned when a successful response could not be decoded.
	ErrDecode = errors.New("malformed response")
)

// Error is an API failure with the server supplied message preserved.
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}
