package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks gilda/internal/rag Engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gilda/internal/contextutil"
)

const (
	// DefaultRetrievalLimit is the number of chunks retrieved for a chat question.
	DefaultRetrievalLimit = 15
	// DefaultDetailRetrievalLimit is the number of chunks retrieved for a deep-link lookup.
	DefaultDetailRetrievalLimit = 10

	detailQueryPrefix = "Detailed information about "
)

// ErrEmptyQuestion is returned for a blank question or lookup query.
var ErrEmptyQuestion = errors.New("question is empty")

// Engine provides RAG (Retrieval-Augmented Generation) functionality.
type Engine interface {
	// Ask answers a question from the owner's documents.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
	// StreamAsk is Ask delivering the answer text through onDelta as it is generated.
	StreamAsk(ctx context.Context, req AskRequest, onDelta func(string) error) (AskResponse, error)
	// Lookup expands one deep link with a single retrieval and generation round trip.
	Lookup(ctx context.Context, req LookupRequest) (LookupResponse, error)
}

// EngineOptions tunes retrieval sizes and prompts.
type EngineOptions struct {
	RetrievalLimit       int
	DetailRetrievalLimit int
	DetailMaxTokens      int
	Prompts              Prompts
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	assembler *Assembler
	generator *Generator
	opts      EngineOptions
}

// NewEngine creates a new RAG engine.
func NewEngine(assembler *Assembler, generator *Generator, opts EngineOptions) Engine {
	if opts.RetrievalLimit <= 0 {
		opts.RetrievalLimit = DefaultRetrievalLimit
	}
	if opts.DetailRetrievalLimit <= 0 {
		opts.DetailRetrievalLimit = DefaultDetailRetrievalLimit
	}
	if opts.Prompts == (Prompts{}) {
		opts.Prompts = DefaultPrompts()
	}
	return &ragEngine{
		assembler: assembler,
		generator: generator,
		opts:      opts,
	}
}

// Ask answers a question using RAG.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	return e.ask(ctx, req, nil)
}

// StreamAsk answers a question using RAG, streaming the answer.
func (e *ragEngine) StreamAsk(ctx context.Context, req AskRequest, onDelta func(string) error) (AskResponse, error) {
	if onDelta == nil {
		return AskResponse{}, fmt.Errorf("onDelta callback is required")
	}
	return e.ask(ctx, req, onDelta)
}

func (e *ragEngine) ask(ctx context.Context, req AskRequest, onDelta func(string) error) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return AskResponse{}, ErrEmptyQuestion
	}

	logger.InfoContext(ctx, "RAG query started",
		"owner_id", req.OwnerID,
		"question_length", len(message),
		"history", len(req.History),
		"limit", e.opts.RetrievalLimit,
	)

	assembled, err := e.assembler.AssembleContext(ctx, req.OwnerID, message, e.opts.RetrievalLimit, req.FallbackText)
	if err != nil {
		return AskResponse{}, fmt.Errorf("failed to assemble context: %w", err)
	}

	resp := AskResponse{
		Sources:       assembled.Matches,
		ContextSource: assembled.Source,
	}
	if resp.Sources == nil {
		resp.Sources = []Match{}
	}

	if assembled.Source == SourceNone {
		resp.Answer = e.opts.Prompts.NoDocuments
		if onDelta != nil {
			if err := onDelta(resp.Answer); err != nil {
				return resp, err
			}
		}
		return resp, nil
	}

	systemPrompt := e.opts.Prompts.SystemPrompt(assembled.Text)
	if onDelta != nil {
		resp.Answer, err = e.generator.GenerateStream(ctx, systemPrompt, req.History, message, onDelta)
	} else {
		resp.Answer, err = e.generator.Generate(ctx, systemPrompt, req.History, message)
	}
	if err != nil {
		return resp, err
	}

	resp.DeepLinks = ExtractDeepLinks(resp.Answer)
	logger.InfoContext(ctx, "RAG query completed",
		"context_source", resp.ContextSource,
		"sources", len(resp.Sources),
		"deep_links", len(resp.DeepLinks),
		"answer_length", len(resp.Answer),
	)
	return resp, nil
}

// Lookup answers a deep-link click.
func (e *ragEngine) Lookup(ctx context.Context, req LookupRequest) (LookupResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return LookupResponse{}, ErrEmptyQuestion
	}

	assembled, err := e.assembler.AssembleContext(ctx, req.OwnerID, detailQueryPrefix+query, e.opts.DetailRetrievalLimit, req.FallbackText)
	if err != nil {
		return LookupResponse{}, fmt.Errorf("failed to assemble context: %w", err)
	}

	resp := LookupResponse{Sources: assembled.Matches, ContextSource: assembled.Source}
	if resp.Sources == nil {
		resp.Sources = []Match{}
	}
	if assembled.Source == SourceNone {
		resp.Details = e.opts.Prompts.NotFound
		return resp, nil
	}

	resp.Details, err = e.generator.GenerateWithLimit(ctx,
		e.opts.Prompts.DetailSystemPrompt(query),
		nil,
		DetailUserMessage(assembled.Text),
		e.opts.DetailMaxTokens,
	)
	if err != nil {
		return resp, err
	}

	logger.InfoContext(ctx, "lookup completed", "query", query, "sources", len(resp.Sources), "details_length", len(resp.Details))
	return resp, nil
}
