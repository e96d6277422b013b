package vectorstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"gilda/internal/storage"
)

// sqlChunkWriter writes chunk rows into the chunks table in multi-row INSERT batches.
type sqlChunkWriter struct {
	db          *storage.DB
	batchSize   int
	concurrency int
	encode      func([]float32) any
}

func (w *sqlChunkWriter) save(ctx context.Context, doc DocumentRef, firstIndex int, chunks []string, embeddings [][]float32) error {
	rows, err := buildRows(firstIndex, chunks, embeddings)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	batchSize := w.batchSize
	if batchSize <= 0 {
		batchSize = 25
	}

	g, gctx := errgroup.WithContext(ctx)
	if w.concurrency > 0 {
		g.SetLimit(w.concurrency)
	}
	for start := 0; start < len(rows); start += batchSize {
		batch := rows[start:min(start+batchSize, len(rows))]
		g.Go(func() error {
			return w.insertBatch(gctx, doc.ID, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to save chunks for document %s: %w", doc.ID, err)
	}
	return nil
}

func (w *sqlChunkWriter) insertBatch(ctx context.Context, documentID string, rows []chunkRow) error {
	var b strings.Builder
	b.WriteString("INSERT INTO chunks (id, document_id, chunk_index, content, embedding, created_at) VALUES ")
	args := make([]any, 0, len(rows)*6)
	now := time.Now().UTC()
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, row.id, documentID, row.index, row.content, w.encode(row.embedding), now)
	}

	if _, err := w.db.ExecContext(ctx, w.db.Rebind(b.String()), args...); err != nil {
		return fmt.Errorf("failed to insert %d chunks: %w", len(rows), err)
	}
	return nil
}

func (w *sqlChunkWriter) deleteByDocument(ctx context.Context, documentID string) error {
	if _, err := w.db.ExecContext(ctx, w.db.Rebind("DELETE FROM chunks WHERE document_id = ?"), documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
