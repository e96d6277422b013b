package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_client.go -package=mocks gilda/internal/rag ChatClient

import (
	"context"
	"fmt"
	"time"

	"gilda/internal/contextutil"
	"gilda/internal/llm"
)

// ChatClient is the chat completion API used by the Generator.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
	StreamChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams, callback func(chunk string) error) error
}

// Generator asks the chat model for grounded answers.
type Generator struct {
	client    ChatClient
	maxTokens int
}

// NewGenerator creates a Generator. maxTokens <= 0 leaves the client's default.
func NewGenerator(client ChatClient, maxTokens int) *Generator {
	return &Generator{client: client, maxTokens: maxTokens}
}

// Generate sends one system message, then history, then userMessage, and returns the reply.
// Upstream failures are *llm.GenerationServiceError.
func (g *Generator) Generate(ctx context.Context, systemPrompt string, history []llm.Message, userMessage string) (string, error) {
	return g.GenerateWithLimit(ctx, systemPrompt, history, userMessage, g.maxTokens)
}

// GenerateWithLimit is Generate with an explicit completion token cap.
func (g *Generator) GenerateWithLimit(ctx context.Context, systemPrompt string, history []llm.Message, userMessage string, maxTokens int) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages := buildMessages(systemPrompt, history, userMessage)
	start := time.Now()
	answer, err := g.client.ChatWithMessages(ctx, messages, llm.ChatParams{MaxTokens: maxTokens})
	if err != nil {
		logger.ErrorContext(ctx, "failed to get LLM response", "error", err)
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}

	logger.InfoContext(ctx, "received LLM response",
		"messages", len(messages),
		"answer_length", len(answer),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return answer, nil
}

// GenerateStream is Generate delivering the reply in pieces through onDelta.
// It returns the full reply once the stream ends.
func (g *Generator) GenerateStream(ctx context.Context, systemPrompt string, history []llm.Message, userMessage string, onDelta func(string) error) (string, error) {
	messages := buildMessages(systemPrompt, history, userMessage)

	var full []byte
	err := g.client.StreamChatWithMessages(ctx, messages, llm.ChatParams{MaxTokens: g.maxTokens}, func(chunk string) error {
		full = append(full, chunk...)
		return onDelta(chunk)
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "streaming LLM response failed", "error", err, "received", len(full))
		return string(full), fmt.Errorf("failed to stream LLM response: %w", err)
	}
	return string(full), nil
}

// buildMessages drops history entries with unknown roles or no content.
func buildMessages(systemPrompt string, history []llm.Message, userMessage string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userMessage})
	return messages
}
