package indexer

import (
	"context"
	"errors"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks gilda/internal/indexer Embedder

var (
	// ErrEmptyDocument is returned when a document has no extractable text.
	ErrEmptyDocument = errors.New("document has no text content")
	// ErrEmbeddingCountMismatch is returned when the embeddings API returns a different
	// number of vectors than chunks were sent.
	ErrEmbeddingCountMismatch = errors.New("embedding count does not match chunk count")
	// ErrPartialIndex is returned when some batches of a document failed under the
	// continue policy.
	ErrPartialIndex = errors.New("document only partially indexed")
)

// Batch failure policies.
const (
	BatchPolicyAbort    = "abort"
	BatchPolicyContinue = "continue"
)

// Embedder converts chunk texts into vectors, one per input and in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Status is the kind of a progress event.
type Status string

const (
	StatusSaving       Status = "saving"
	StatusChunked      Status = "chunked"
	StatusIndexing     Status = "indexing"
	StatusCompletedDoc Status = "completed_doc"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
)

// ProgressEvent is one record of the ingestion progress stream.
// Index is 1-based within the request; Total is the number of documents in it.
type ProgressEvent struct {
	Status       Status `json:"status"`
	Filename     string `json:"filename,omitempty"`
	Index        int    `json:"index,omitempty"`
	Total        int    `json:"total,omitempty"`
	DocumentID   string `json:"documentId,omitempty"`
	ChunkCount   int    `json:"chunkCount,omitempty"`
	CurrentChunk int    `json:"currentChunk,omitempty"`
	TotalChunks  int    `json:"totalChunks,omitempty"`
	Message      string `json:"message,omitempty"`
}

// EmitFunc receives progress events. A returned error means the consumer is gone.
type EmitFunc func(ProgressEvent) error

// Upload is one extracted document waiting to be ingested.
type Upload struct {
	OwnerID   string
	Filename  string
	Text      string
	SizeBytes int64
}

// Options tunes the ingestion pipeline.
type Options struct {
	ChunkSize               int
	Overlap                 int
	EmbedBatchSize          int
	BatchFailurePolicy      string
	ContinueOnDocumentError bool
}
