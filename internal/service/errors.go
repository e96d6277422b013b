package service

import (
	"errors"
	"fmt"

	"gilda/internal/llm"
	"gilda/internal/share"
	"gilda/internal/storage"
	"gilda/internal/vectorstore"
)

var (
	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrExternalService is returned when an external service call fails.
	ErrExternalService = errors.New("external service error")
	// ErrUnauthorized is returned when a request carries no owner identity.
	ErrUnauthorized = errors.New("owner identity required")
	// ErrUnavailable is returned when the vector index cannot be reached.
	ErrUnavailable = errors.New("service unavailable")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// classify maps lower-layer sentinels onto the service sentinels handlers understand.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, share.ErrNotFound):
		return fmt.Errorf("%s: %w: %w", msg, ErrNotFound, err)
	case errors.Is(err, llm.ErrUpstream):
		return fmt.Errorf("%s: %w: %w", msg, ErrExternalService, err)
	case errors.Is(err, vectorstore.ErrUnavailable):
		return fmt.Errorf("%s: %w: %w", msg, ErrUnavailable, err)
	}
	return WrapError(err, msg)
}
