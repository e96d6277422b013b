package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_embedder.go -package=mocks gilda/internal/rag QueryEmbedder

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gilda/internal/contextutil"
	"gilda/internal/storage"
	"gilda/internal/vectorstore"
)

const (
	// DefaultMaxContextChars caps the context handed to the model.
	DefaultMaxContextChars = 300000
	// TruncationNotice is appended to a context cut at the cap.
	TruncationNotice = "\n\n[Content truncated: the document context exceeded the maximum length.]"

	matchSeparator = "\n\n---\n\n"
)

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Assembler builds grounding context for a query from the owner's documents.
type Assembler struct {
	embedder  QueryEmbedder
	vectors   vectorstore.VectorStore
	documents storage.DocumentStore
	maxChars  int
}

// NewAssembler creates an Assembler. maxChars <= 0 uses DefaultMaxContextChars.
func NewAssembler(embedder QueryEmbedder, vectors vectorstore.VectorStore, documents storage.DocumentStore, maxChars int) *Assembler {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	return &Assembler{
		embedder:  embedder,
		vectors:   vectors,
		documents: documents,
		maxChars:  maxChars,
	}
}

// AssembleContext embeds query, searches the owner's chunks and joins the matches
// with source headers. When embedding or search fails, or nothing matches, it falls
// back to fallbackText if given, otherwise to the owner's stored document text.
// The result is always capped with TruncateContext.
func (a *Assembler) AssembleContext(ctx context.Context, ownerID, query string, limit int, fallbackText string) (AssembledContext, error) {
	logger := contextutil.LoggerFromContext(ctx)

	results, err := a.search(ctx, ownerID, query, limit)
	if err != nil {
		logger.WarnContext(ctx, "vector retrieval failed, using fallback context", "owner_id", ownerID, "error", err)
	}

	if len(results) > 0 {
		parts := make([]string, len(results))
		matches := make([]Match, len(results))
		for i, r := range results {
			parts[i] = fmt.Sprintf("[Source: %s]\n%s", r.SourceFilename, r.Content)
			matches[i] = Match{
				ChunkID:    r.ChunkID,
				DocumentID: r.DocumentID,
				Filename:   r.SourceFilename,
				Similarity: r.Similarity,
			}
		}
		text, truncated := truncate(strings.Join(parts, matchSeparator), a.maxChars)
		logger.InfoContext(ctx, "context assembled",
			"source", SourceVector,
			"matches", len(matches),
			"context_length", len(text),
			"truncated", truncated,
		)
		return AssembledContext{Text: text, Matches: matches, Source: SourceVector, Truncated: truncated}, nil
	}

	fallback := fallbackText
	if strings.TrimSpace(fallback) == "" {
		docs, err := a.documents.ListActive(ctx, ownerID)
		if err != nil {
			return AssembledContext{}, fmt.Errorf("failed to load fallback documents: %w", err)
		}
		fallback = CombineDocuments(rankDocuments(query, docs))
	}
	if strings.TrimSpace(fallback) == "" {
		logger.InfoContext(ctx, "no context available", "owner_id", ownerID)
		return AssembledContext{Source: SourceNone}, nil
	}

	text, truncated := truncate(fallback, a.maxChars)
	logger.InfoContext(ctx, "context assembled",
		"source", SourceFallback,
		"context_length", len(text),
		"truncated", truncated,
	)
	return AssembledContext{Text: text, Source: SourceFallback, Truncated: truncated}, nil
}

func (a *Assembler) search(ctx context.Context, ownerID, query string, limit int) ([]vectorstore.SearchResult, error) {
	embedding, err := a.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := a.vectors.Search(ctx, ownerID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	return results, nil
}

// CombineDocuments concatenates document texts under filename banners.
func CombineDocuments(docs []*storage.Document) string {
	var b strings.Builder
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		fmt.Fprintf(&b, "=== %s ===\n\n%s\n\n", doc.Filename, doc.Text)
	}
	return b.String()
}

// TruncateContext cuts text to at most maxChars characters and appends
// TruncationNotice when anything was removed. Text within the limit is returned as is.
func TruncateContext(text string, maxChars int) string {
	out, _ := truncate(text, maxChars)
	return out
}

func truncate(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:maxChars]) + TruncationNotice, true
}
