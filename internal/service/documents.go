package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks gilda/internal/service DocumentService,Indexer,TextExtractor

import (
	"context"
	"path/filepath"
	"strings"

	"gilda/internal/contextutil"
	"gilda/internal/indexer"
	"gilda/internal/storage"
	"gilda/internal/vectorstore"
)

// Indexer ingests extracted documents and reports coverage.
type Indexer interface {
	IngestAll(ctx context.Context, uploads []indexer.Upload, emit indexer.EmitFunc) error
	GetIndexingCoverageStats(ctx context.Context, ownerID, embeddingModelName string) (*indexer.IndexingCoverageStats, error)
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, filename string, data []byte) (string, error)
}

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Filename string
	Data     []byte
}

// DocumentList is an owner's documents with their indexing coverage.
type DocumentList struct {
	Documents []*storage.Document
	Stats     *indexer.IndexingCoverageStats
}

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Upload extracts and indexes files, reporting progress through emit.
	Upload(ctx context.Context, ownerID string, files []UploadFile, emit indexer.EmitFunc) error
	// List returns the owner's documents and indexing statistics.
	List(ctx context.Context, ownerID string) (DocumentList, error)
	// Delete removes a document and its chunks.
	Delete(ctx context.Context, ownerID, id string) error
	// Reindex re-embeds the owner's active documents from their stored text.
	Reindex(ctx context.Context, ownerID string, emit indexer.EmitFunc) error
}

type documentService struct {
	documents      storage.DocumentStore
	vectors        vectorstore.VectorStore
	indexer        Indexer
	extractor      TextExtractor
	embeddingModel string
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documents storage.DocumentStore, vectors vectorstore.VectorStore, idx Indexer, extractor TextExtractor, embeddingModel string) DocumentService {
	return &documentService{
		documents:      documents,
		vectors:        vectors,
		indexer:        idx,
		extractor:      extractor,
		embeddingModel: embeddingModel,
	}
}

// Upload validates the files, extracts their text and runs the ingestion pipeline.
// Validation problems are returned before anything is emitted.
func (s *documentService) Upload(ctx context.Context, ownerID string, files []UploadFile, emit indexer.EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)

	if ownerID == "" {
		return ErrUnauthorized
	}
	if len(files) == 0 {
		return &ValidationError{Field: "files", Message: "at least one PDF file is required"}
	}
	for _, f := range files {
		if !strings.EqualFold(filepath.Ext(f.Filename), ".pdf") {
			return &ValidationError{Field: "files", Message: "only PDF files are supported: " + f.Filename}
		}
	}

	uploads := make([]indexer.Upload, 0, len(files))
	for _, f := range files {
		text, err := s.extractor.ExtractBytes(ctx, f.Filename, f.Data)
		if err != nil {
			return WrapError(err, "failed to extract text")
		}
		uploads = append(uploads, indexer.Upload{
			OwnerID:   ownerID,
			Filename:  filepath.Base(f.Filename),
			Text:      text,
			SizeBytes: int64(len(f.Data)),
		})
	}

	logger.InfoContext(ctx, "document upload started", "owner_id", ownerID, "files", len(uploads))
	if err := s.indexer.IngestAll(ctx, uploads, emit); err != nil {
		return classify(err, "failed to index documents")
	}
	return nil
}

// List returns the owner's documents.
func (s *documentService) List(ctx context.Context, ownerID string) (DocumentList, error) {
	if ownerID == "" {
		return DocumentList{}, ErrUnauthorized
	}

	docs, err := s.documents.ListByOwner(ctx, ownerID)
	if err != nil {
		return DocumentList{}, WrapError(err, "failed to list documents")
	}
	stats, err := s.indexer.GetIndexingCoverageStats(ctx, ownerID, s.embeddingModel)
	if err != nil {
		return DocumentList{}, WrapError(err, "failed to compute indexing stats")
	}
	if docs == nil {
		docs = []*storage.Document{}
	}
	return DocumentList{Documents: docs, Stats: stats}, nil
}

// Delete removes the owner's document. The chunks are removed first so an
// external vector index never keeps chunks of a missing document.
func (s *documentService) Delete(ctx context.Context, ownerID, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if ownerID == "" {
		return ErrUnauthorized
	}
	if id == "" {
		return &ValidationError{Field: "id", Message: "cannot be empty"}
	}

	if _, err := s.documents.GetByID(ctx, ownerID, id); err != nil {
		return classify(err, "failed to load document")
	}
	if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
		return classify(err, "failed to delete document chunks")
	}
	if err := s.documents.Delete(ctx, ownerID, id); err != nil {
		return classify(err, "failed to delete document")
	}

	logger.InfoContext(ctx, "document deleted", "owner_id", ownerID, "document_id", id)
	return nil
}

// Reindex runs the owner's active documents through the pipeline again. Each
// document is stored as a new version that supersedes the old one, so the old
// chunks are removed once the new ones are indexed.
func (s *documentService) Reindex(ctx context.Context, ownerID string, emit indexer.EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)

	if ownerID == "" {
		return ErrUnauthorized
	}

	docs, err := s.documents.ListActive(ctx, ownerID)
	if err != nil {
		return WrapError(err, "failed to list documents")
	}
	if len(docs) == 0 {
		return &ValidationError{Field: "documents", Message: "no documents to reindex"}
	}

	uploads := make([]indexer.Upload, 0, len(docs))
	for _, doc := range docs {
		uploads = append(uploads, indexer.Upload{
			OwnerID:   ownerID,
			Filename:  doc.Filename,
			Text:      doc.Text,
			SizeBytes: doc.SizeBytes,
		})
	}

	logger.InfoContext(ctx, "reindex started", "owner_id", ownerID, "documents", len(uploads))
	if err := s.indexer.IngestAll(ctx, uploads, emit); err != nil {
		return classify(err, "failed to reindex documents")
	}
	return nil
}
