package backend

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend operation.
type Kind string

const (
	// KindNetwork: the host could not be reached or the connection broke.
	KindNetwork Kind = "network"
	// KindHTTP: the backend answered with a non-2xx status.
	KindHTTP Kind = "http"
	// KindTimeout: a bounded call (video upload) ran past its deadline.
	KindTimeout Kind = "timeout"
	// KindValidation: the input was rejected before any request was sent.
	KindValidation Kind = "validation"
)

// Error is the single error type surfaced by every backend call.
// Message is meant to be shown to the operator as is.
type Error struct {
	Kind    Kind
	Service string
	Method  string
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a backend error of the given kind.
func IsKind(err error, kind Kind) bool {
	var be *Error
	return errors.As(err, &be) && be.Kind == kind
}

// ValidationError builds an error for input rejected before any request.
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}
