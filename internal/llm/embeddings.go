package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"gilda/internal/contextutil"
)

// EmbeddingsClient turns text into vectors through an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	Model        string
	ExpectedSize int // Expected vector size for validation
	Timeout      time.Duration

	client  *openai.Client
	limiter *rate.Limiter
}

// EmbeddingsOption configures an EmbeddingsClient.
type EmbeddingsOption func(*EmbeddingsClient)

// WithEmbeddingTimeout bounds every embeddings request.
func WithEmbeddingTimeout(d time.Duration) EmbeddingsOption {
	return func(c *EmbeddingsClient) {
		c.Timeout = d
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
func WithRateLimit(rps float64, burst int) EmbeddingsOption {
	return func(c *EmbeddingsClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewEmbeddingsClient creates a new embeddings client.
// expectedSize is the configured vector dimension; every returned vector is validated
// against it. baseURL includes the API version prefix, e.g. https://api.openai.com/v1.
func NewEmbeddingsClient(baseURL, apiKey, model string, expectedSize int, opts ...EmbeddingsOption) *EmbeddingsClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{}

	c := &EmbeddingsClient{
		Model:        model,
		ExpectedSize: expectedSize,
		Timeout:      30 * time.Second,
		client:       openai.NewClientWithConfig(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmbedText returns the embedding of a single text.
func (c *EmbeddingsClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for the given texts in one request.
// The i-th vector of the result belongs to texts[i].
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}

	logger := contextutil.LoggerFromContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &EmbeddingServiceError{Message: "rate limiter wait aborted", Err: err}
		}
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.Model),
	})
	if err != nil {
		status, msg := upstreamDetails(err)
		logger.WarnContext(ctx, "embeddings request failed",
			"model", c.Model,
			"inputs", len(texts),
			"status", status,
			"error", err,
		)
		return nil, &EmbeddingServiceError{StatusCode: status, Message: msg, Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, &EmbeddingServiceError{
			Message: fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)),
		}
	}

	// The provider may return items out of order; place each by its index.
	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) || vectors[item.Index] != nil {
			return nil, &EmbeddingServiceError{
				Message: fmt.Sprintf("invalid or duplicate embedding index %d", item.Index),
			}
		}
		if c.ExpectedSize > 0 && len(item.Embedding) != c.ExpectedSize {
			return nil, &EmbeddingServiceError{
				Message: fmt.Sprintf("embedding %d has size %d, expected %d", item.Index, len(item.Embedding), c.ExpectedSize),
			}
		}
		vectors[item.Index] = item.Embedding
	}

	logger.DebugContext(ctx, "embeddings generated",
		"model", c.Model,
		"inputs", len(texts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return vectors, nil
}
