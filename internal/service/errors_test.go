package service

import (
	"errors"
	"fmt"
	"testing"

	"gilda/internal/llm"
	"gilda/internal/share"
	"gilda/internal/storage"
	"gilda/internal/vectorstore"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "field and message",
			err: &ValidationError{
				Field:   "message",
				Message: "cannot be empty",
			},
			want: "validation error on field message: cannot be empty",
		},
		{
			name: "empty field",
			err: &ValidationError{
				Field:   "",
				Message: "invalid",
			},
			want: "validation error on field : invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ValidationError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should return nil")
	}

	base := errors.New("boom")
	err := WrapError(base, "failed to load")
	if err.Error() != "failed to load: boom" {
		t.Errorf("WrapError() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("WrapError() should keep the wrapped error")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"storage not found", storage.ErrNotFound, ErrNotFound},
		{"share not found", share.ErrNotFound, ErrNotFound},
		{"generation failure", &llm.GenerationServiceError{StatusCode: 500, Message: "down"}, ErrExternalService},
		{"embedding failure", &llm.EmbeddingServiceError{Message: "timeout"}, ErrExternalService},
		{"vector index down", fmt.Errorf("%w: connection refused", vectorstore.ErrUnavailable), ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "op")
			if !errors.Is(err, tt.want) {
				t.Errorf("classify() = %v, want errors.Is %v", err, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("classify() lost the original error")
			}
		})
	}

	other := errors.New("disk full")
	err := classify(other, "op")
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExternalService) {
		t.Errorf("classify() of an unknown error = %v", err)
	}
	if classify(nil, "op") != nil {
		t.Error("classify(nil) should return nil")
	}
}
