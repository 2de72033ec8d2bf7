// Package apperror defines the error taxonomy shared by the repository,
// service and handler layers.
//
// Lower layers return these typed errors; the HTTP layer is the only place
// that turns them into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel the error wraps
	Message string // human-readable message, safe to show to users
	Field   string // optional: form field that caused the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, key string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, key),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message, for endpoints
// whose wording is part of their contract (e.g. "isbn not found").
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

func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is used for failed credential checks. The message must not
// reveal which credential was wrong.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
