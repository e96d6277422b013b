package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"gilda/internal/contextutil"
)

const defaultTemperature = 0.7

// Client sends chat completion requests to an OpenAI-compatible API.
type Client struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration

	client *openai.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithChatTimeout bounds every chat completion request.
func WithChatTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.Timeout = d
	}
}

// WithMaxTokens sets the default completion length cap.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) {
		c.MaxTokens = n
	}
}

// NewClient creates a new LLM client. baseURL includes the API version prefix.
func NewClient(baseURL, apiKey, model string, opts ...ClientOption) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{}

	c := &Client{
		Model:     model,
		MaxTokens: 1000,
		Timeout:   60 * time.Second,
		client:    openai.NewClientWithConfig(cfg),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChatWithMessages sends messages as one completion request and returns the reply text.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req := c.buildRequest(messages, params)
	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		status, msg := upstreamDetails(err)
		logger.WarnContext(ctx, "chat completion failed", "model", req.Model, "status", status, "error", err)
		return "", &GenerationServiceError{StatusCode: status, Message: msg, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationServiceError{Message: "no choices in response"}
	}

	logger.DebugContext(ctx, "chat completion finished",
		"model", req.Model,
		"messages", len(messages),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp.Choices[0].Message.Content, nil
}

// StreamChatWithMessages sends a streaming completion request and calls callback
// for every non-empty content delta, in order.
func (c *Client) StreamChatWithMessages(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req := c.buildRequest(messages, params)
	req.Stream = true

	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		status, msg := upstreamDetails(err)
		return &GenerationServiceError{StatusCode: status, Message: msg, Err: err}
	}
	defer func() {
		_ = stream.Close()
	}()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			status, msg := upstreamDetails(err)
			return &GenerationServiceError{StatusCode: status, Message: msg, Err: err}
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			if err := callback(chunk); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
	}
}

func (c *Client) buildRequest(messages []Message, params ChatParams) openai.ChatCompletionRequest {
	model := c.Model
	if params.Model != "" {
		model = params.Model
	}
	maxTokens := c.MaxTokens
	if params.MaxTokens > 0 {
		maxTokens = params.MaxTokens
	}
	temperature := params.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	if isReasoningModel(model) {
		// Reasoning models reject sampling parameters other than the default.
		temperature = 0
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    strings.ToLower(m.Role),
			Content: m.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:               model,
		Messages:            msgs,
		MaxCompletionTokens: maxTokens,
		Temperature:         temperature,
	}
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
