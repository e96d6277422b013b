package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUpstream matches every failure reported by the hosted model provider.
var ErrUpstream = errors.New("upstream model service error")

// EmbeddingServiceError reports a failed embedding request.
// StatusCode is the provider's HTTP status, or 0 when the request never got a response.
type EmbeddingServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *EmbeddingServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("embedding service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("embedding service error: %s", e.Message)
}

func (e *EmbeddingServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// GenerationServiceError reports a failed chat completion request.
type GenerationServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GenerationServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation service error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("generation service error: %s", e.Message)
}

func (e *GenerationServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstream}
	}
	return []error{ErrUpstream, e.Err}
}

// upstreamDetails extracts the HTTP status and a readable message from a go-openai error.
func upstreamDetails(err error) (int, string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, apiErr.Message
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if body := strings.TrimSpace(string(reqErr.Body)); body != "" {
			return reqErr.HTTPStatusCode, body
		}
		return reqErr.HTTPStatusCode, reqErr.HTTPStatus
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return 0, "request canceled"
	}
	return 0, err.Error()
}
