package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks gilda/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

var (
	// ErrLengthMismatch is returned when chunks and embeddings differ in length.
	ErrLengthMismatch = errors.New("chunks and embeddings length mismatch")
	// ErrUnavailable wraps failures to reach or query the vector index.
	ErrUnavailable = errors.New("vector store unavailable")
)

// DocumentRef identifies the document chunks belong to.
type DocumentRef struct {
	ID       string
	OwnerID  string
	Filename string
}

// SearchResult is one chunk returned by a similarity search.
type SearchResult struct {
	ChunkID        string
	DocumentID     string
	SourceFilename string
	Content        string
	Similarity     float64 // 1 - cosine distance
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// SaveChunks stores chunks[i] with embeddings[i]. firstIndex is the position of
	// chunks[0] within the document. Returns ErrLengthMismatch before any write
	// when the slices differ in length.
	SaveChunks(ctx context.Context, doc DocumentRef, firstIndex int, chunks []string, embeddings [][]float32) error

	// Search returns up to limit chunks of the owner's active documents ordered by
	// similarity descending, ties broken by chunk ID ascending.
	Search(ctx context.Context, ownerID string, query []float32, limit int) ([]SearchResult, error)

	// DeleteByDocument removes every chunk of a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Ping checks that the backing index is reachable.
	Ping(ctx context.Context) error
}
