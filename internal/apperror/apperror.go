// Package apperror defines the error vocabulary shared by the service and
// handler layers.
//
// Services return *AppError values wrapping one of the sentinels below.
// The HTTP layer inspects the chain with errors.Is and picks the status
// code; the Message becomes the status message sent to the client.
//
//	ErrValidation      → 400
//	ErrUnauthorized    → 401
//	ErrForbidden       → 403
//	ErrNotFound        → 404
//	ErrTooManyRequests → 429
//
// Anything that does not wrap a sentinel is treated as an internal error.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyRequests = errors.New("too many requests")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing row, e.g. NotFound("game", "7") → "game not found with id 7".
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-supplied message, for misses
// that are not keyed by an id ("No image for user").
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized means the request carried no token, or one that resolves
// to no user.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Err:     ErrTooManyRequests,
		Message: message,
	}
}
