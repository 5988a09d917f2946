package services

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by generation calls when no API key was
// supplied. It is checked before any network activity.
var ErrNotConfigured = errors.New("AI generation is not configured")

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

// APIError is a non-2xx reply from the generation API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation API returned status %d: %s", e.StatusCode, e.Body)
}

// GenerationError is a generation call that failed without an HTTP status:
// transport failure, blocked prompt or an unreadable reply.
type GenerationError struct{ Err error }

func (e *GenerationError) Error() string { return fmt.Sprintf("Gemini API error: %v", e.Err) }

func (e *GenerationError) Unwrap() error { return e.Err }

// DispatchError is any failed diary delivery: transport failure or non-2xx.
type DispatchError struct {
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("diary dispatch failed: %v", e.Err)
	}
	return fmt.Sprintf("diary dispatch failed with status %d", e.StatusCode)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed store write that followed a successful
// generation.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return fmt.Sprintf("failed to persist result: %v", e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }
