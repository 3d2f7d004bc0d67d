package provider

import (
	"context"
	"errors"
)

// ErrorKind classifies a generation failure. The string values are the
// reason strings written to the failures file.
type ErrorKind string

const (
	// KindProvider covers network and HTTP failures talking to the backend.
	KindProvider ErrorKind = "provider_error"
	// KindRateLimit is an explicit 429-style signal from the backend. It is
	// the only kind the batch runner retries.
	KindRateLimit ErrorKind = "rate_limited"
	// KindSchemaValidation means the response could not be coerced into the
	// declared record fields.
	KindSchemaValidation ErrorKind = "schema_validation"
	// KindInterrupted marks tasks abandoned by a run-level cancellation.
	KindInterrupted ErrorKind = "interrupted"
)

// Error is a classified generation failure. Adapters return these; the batch
// runner keys retry and reporting decisions off the Kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewProviderError(err error) *Error {
	return &Error{Kind: KindProvider, Err: err}
}

func NewRateLimitError(err error) *Error {
	return &Error{Kind: KindRateLimit, Err: err}
}

func NewSchemaValidationError(err error) *Error {
	return &Error{Kind: KindSchemaValidation, Err: err}
}

// KindOf classifies an arbitrary error from a generation attempt. Context
// cancellation maps to interrupted; unclassified errors count as provider
// failures.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindInterrupted
	}
	return KindProvider
}

// IsRateLimit reports whether an error is a backend rate-limit signal.
func IsRateLimit(err error) bool {
	return KindOf(err) == KindRateLimit
}
