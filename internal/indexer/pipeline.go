package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gilda/internal/contextutil"
	"gilda/internal/storage"
	"gilda/internal/vectorstore"
)

const defaultEmbedBatchSize = 50

// Pipeline turns uploaded documents into stored, searchable chunks.
// Batches are embedded and persisted one after another so progress events
// arrive in chunk order.
type Pipeline struct {
	documents storage.DocumentStore
	vectors   vectorstore.VectorStore
	embedder  Embedder
	chunker   *TextChunker
	opts      Options
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(documents storage.DocumentStore, vectors vectorstore.VectorStore, embedder Embedder, opts Options) *Pipeline {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = defaultEmbedBatchSize
	}
	if opts.BatchFailurePolicy == "" {
		opts.BatchFailurePolicy = BatchPolicyAbort
	}
	return &Pipeline{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		chunker:   NewTextChunker(opts.ChunkSize, opts.Overlap),
		opts:      opts,
	}
}

// progress forwards events to an EmitFunc until the first delivery failure.
type progress struct {
	emit   EmitFunc
	broken bool
}

func (pr *progress) send(ctx context.Context, ev ProgressEvent) {
	if pr.emit == nil || pr.broken {
		return
	}
	if err := pr.emit(ev); err != nil {
		pr.broken = true
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "progress consumer gone, continuing without events", "status", ev.Status, "error", err)
	}
}

// Ingest stores one document and indexes its chunks. index and total place the
// document within its request for progress reporting. The returned document is
// nil when nothing was persisted.
func (p *Pipeline) Ingest(ctx context.Context, up Upload, index, total int, emit EmitFunc) (*storage.Document, error) {
	return p.ingest(ctx, up, index, total, &progress{emit: emit})
}

// IngestAll ingests uploads in order and emits a final success event when every
// document completed. Without ContinueOnDocumentError the first failed document
// stops the request.
func (p *Pipeline) IngestAll(ctx context.Context, uploads []Upload, emit EmitFunc) error {
	logger := contextutil.LoggerFromContext(ctx)
	pr := &progress{emit: emit}

	var failed int
	var firstErr error
	for i, up := range uploads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.ingest(ctx, up, i+1, len(uploads), pr); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			if !p.opts.ContinueOnDocumentError {
				return err
			}
		}
	}

	if failed > 0 {
		logger.WarnContext(ctx, "ingestion finished with failures", "failed", failed, "total", len(uploads))
		return fmt.Errorf("%d of %d documents failed: %w", failed, len(uploads), firstErr)
	}

	pr.send(ctx, ProgressEvent{
		Status:  StatusSuccess,
		Total:   len(uploads),
		Message: fmt.Sprintf("Processed %d document(s)", len(uploads)),
	})
	logger.InfoContext(ctx, "ingestion complete", "documents", len(uploads))
	return nil
}

func (p *Pipeline) ingest(ctx context.Context, up Upload, index, total int, pr *progress) (*storage.Document, error) {
	logger := contextutil.LoggerFromContext(ctx).With("filename", up.Filename, "owner_id", up.OwnerID)

	fail := func(doc *storage.Document, err error) (*storage.Document, error) {
		ev := ProgressEvent{Status: StatusError, Filename: up.Filename, Index: index, Total: total, Message: err.Error()}
		if doc != nil {
			ev.DocumentID = doc.ID
			p.withdraw(ctx, doc)
		}
		pr.send(ctx, ev)
		logger.ErrorContext(ctx, "ingestion failed", "error", err)
		return doc, err
	}

	text := sanitizeText(up.Text)
	if strings.TrimSpace(text) == "" {
		return fail(nil, fmt.Errorf("%s: %w", up.Filename, ErrEmptyDocument))
	}

	pr.send(ctx, ProgressEvent{Status: StatusSaving, Filename: up.Filename, Index: index, Total: total})

	doc := &storage.Document{
		OwnerID:   up.OwnerID,
		Filename:  up.Filename,
		Text:      text,
		SizeBytes: up.SizeBytes,
		Active:    true,
	}
	if err := p.documents.Create(ctx, doc); err != nil {
		return fail(nil, fmt.Errorf("failed to save document: %w", err))
	}

	chunks := p.chunker.Chunk(text)
	pr.send(ctx, ProgressEvent{
		Status:     StatusChunked,
		Filename:   up.Filename,
		Index:      index,
		Total:      total,
		DocumentID: doc.ID,
		ChunkCount: len(chunks),
	})
	logger.InfoContext(ctx, "document chunked", "document_id", doc.ID, "chunks", len(chunks))

	ref := vectorstore.DocumentRef{ID: doc.ID, OwnerID: doc.OwnerID, Filename: doc.Filename}
	stored := 0
	var batchErrs []error
	for start := 0; start < len(chunks); start += p.opts.EmbedBatchSize {
		end := min(start+p.opts.EmbedBatchSize, len(chunks))
		if err := p.indexBatch(ctx, ref, start, chunks[start:end]); err != nil {
			err = fmt.Errorf("chunks %d-%d: %w", start+1, end, err)
			if p.opts.BatchFailurePolicy != BatchPolicyContinue {
				p.recordChunkCount(ctx, doc, stored)
				return fail(doc, err)
			}
			logger.WarnContext(ctx, "batch failed, continuing", "error", err)
			batchErrs = append(batchErrs, err)
			continue
		}
		stored += end - start
		pr.send(ctx, ProgressEvent{
			Status:       StatusIndexing,
			Filename:     up.Filename,
			Index:        index,
			Total:        total,
			DocumentID:   doc.ID,
			CurrentChunk: end,
			TotalChunks:  len(chunks),
		})
	}

	if err := p.documents.UpdateChunkCount(ctx, doc.ID, stored); err != nil {
		return fail(doc, fmt.Errorf("failed to record chunk count: %w", err))
	}
	doc.ChunkCount = stored

	if len(batchErrs) > 0 {
		err := fmt.Errorf("%w: %d of %d chunks stored: %w", ErrPartialIndex, stored, len(chunks), errors.Join(batchErrs...))
		return fail(doc, err)
	}

	superseded, err := p.documents.Supersede(ctx, up.OwnerID, up.Filename, doc.ID)
	if err != nil {
		return fail(doc, fmt.Errorf("failed to supersede previous versions: %w", err))
	}
	for _, id := range superseded {
		if err := p.vectors.DeleteByDocument(ctx, id); err != nil {
			return fail(doc, fmt.Errorf("failed to remove chunks of superseded document %s: %w", id, err))
		}
	}
	if len(superseded) > 0 {
		logger.InfoContext(ctx, "superseded previous versions", "document_id", doc.ID, "count", len(superseded))
	}

	pr.send(ctx, ProgressEvent{
		Status:     StatusCompletedDoc,
		Filename:   up.Filename,
		Index:      index,
		Total:      total,
		DocumentID: doc.ID,
		ChunkCount: stored,
	})
	logger.InfoContext(ctx, "document indexed", "document_id", doc.ID, "chunks", stored)
	return doc, nil
}

// indexBatch embeds one batch and stores it. firstIndex is the position of the
// batch's first chunk within the document.
func (p *Pipeline) indexBatch(ctx context.Context, ref vectorstore.DocumentRef, firstIndex int, batch []string) error {
	embeddings, err := p.embedder.EmbedTexts(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embeddings) != len(batch) {
		return fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingCountMismatch, len(batch), len(embeddings))
	}
	if err := p.vectors.SaveChunks(ctx, ref, firstIndex, batch, embeddings); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// withdraw deactivates a failed document that was replacing an active version
// of the same file, and removes its chunks, so the previous version stays the
// only one searched.
func (p *Pipeline) withdraw(ctx context.Context, doc *storage.Document) {
	logger := contextutil.LoggerFromContext(ctx)

	withdrawn, err := p.documents.Withdraw(ctx, doc.OwnerID, doc.Filename, doc.ID)
	if err != nil {
		logger.WarnContext(ctx, "failed to withdraw failed document", "document_id", doc.ID, "error", err)
		return
	}
	if !withdrawn {
		return
	}
	doc.Active = false
	if err := p.vectors.DeleteByDocument(ctx, doc.ID); err != nil {
		logger.WarnContext(ctx, "failed to remove chunks of withdrawn document", "document_id", doc.ID, "error", err)
		return
	}
	logger.InfoContext(ctx, "failed upload withdrawn, previous version kept", "document_id", doc.ID)
}

// recordChunkCount stores how many chunks made it before an abort.
func (p *Pipeline) recordChunkCount(ctx context.Context, doc *storage.Document, stored int) {
	if stored == 0 {
		return
	}
	if err := p.documents.UpdateChunkCount(ctx, doc.ID, stored); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record partial chunk count", "document_id", doc.ID, "error", err)
		return
	}
	doc.ChunkCount = stored
}

// sanitizeText drops NUL bytes and invalid UTF-8 left behind by text extraction.
func sanitizeText(text string) string {
	return strings.ToValidUTF8(strings.ReplaceAll(text, "\x00", ""), "")
}
