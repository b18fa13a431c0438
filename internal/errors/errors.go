package errors

import (
	"errors"
	"fmt"
	"time"
)

// AppError is the application error carried across layers. ID is a stable
// dotted identifier suitable for logs and API payloads.
type AppError struct {
	ID      string `json:"id"`
	Message string `json:"detail"`
	cause   error
	notFound bool
}

type Option func(*AppError)

func WithID(id string) Option {
	return func(e *AppError) { e.ID = id }
}

func WithCause(cause error) Option {
	return func(e *AppError) { e.cause = cause }
}

func New(message string, opts ...Option) *AppError {
	e := &AppError{ID: "app.error", Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func Internal(message string, opts ...Option) *AppError {
	e := New(message, opts...)
	if e.ID == "app.error" {
		e.ID = "app.internal"
	}
	return e
}

func NotFound(id, message string) *AppError {
	e := New(message, WithID(id))
	e.notFound = true
	return e
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.ID, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.ID, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Details returns the full error text including the cause chain.
func Details(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsNotFound reports whether err or anything it wraps marks an absent
// resource, including store-level DBNotFoundError.
func IsNotFound(err error) bool {
	var app *AppError
	if errors.As(err, &app) && app.notFound {
		return true
	}
	var nf *DBNotFoundError
	return errors.As(err, &nf)
}

// RateLimitedError is the typed rejection returned by the coordinator when
// the tenant's export quota is exhausted. It is not an internal failure.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate_limited: retry after %s", e.RetryAfter)
}

// AsRateLimited extracts a RateLimitedError from err, if present.
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl, true
	}
	return nil, false
}

// stdlib passthroughs so callers need a single errors import.

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
