package api

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindClientInput Kind = "client_input"
	KindTooLarge    Kind = "too_large"
	KindProcessing  Kind = "processing"
)

// Error is a handler failure. Message is what the caller sees.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("api: %s (%s)", e.Kind, e.Message)
	}
	return fmt.Sprintf("api: %s (%s): %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Status() int {
	switch e.Kind {
	case KindClientInput:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func clientError(msg string) *Error {
	return &Error{Kind: KindClientInput, Message: msg}
}

// processingError exposes the underlying message to the caller.
func processingError(err error) *Error {
	return &Error{Kind: KindProcessing, Message: err.Error(), Err: err}
}

func tooLarge(limit int64) *Error {
	return &Error{Kind: KindTooLarge, Message: fmt.Sprintf("Request body exceeds %d bytes", limit)}
}

// parseFormError maps a multipart parse failure. A body that hit the size
// limit is too large; anything else is treated as a missing file.
func parseFormError(err error, missing string) *Error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return tooLarge(mbe.Limit)
	}
	return &Error{Kind: KindClientInput, Message: missing, Err: err}
}
