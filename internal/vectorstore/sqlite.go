package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"gilda/internal/contextutil"
	"gilda/internal/storage"
)

// SQLiteStore implements VectorStore on SQLite with an exact cosine scan.
// Vectors are stored as little-endian float32 BLOBs next to their documents.
type SQLiteStore struct {
	sqlChunkWriter
}

// NewSQLiteStore creates a store on a SQLite handle.
func NewSQLiteStore(db *storage.DB, batchSize int) *SQLiteStore {
	return &SQLiteStore{
		sqlChunkWriter: sqlChunkWriter{
			db:          db,
			batchSize:   batchSize,
			concurrency: 1, // single writer
			encode: func(v []float32) any {
				return encodeVector(v)
			},
		},
	}
}

// EnsureSchema creates the chunks table.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply vector schema: %w", err)
		}
	}
	return nil
}

// SaveChunks stores chunks with their embeddings.
func (s *SQLiteStore) SaveChunks(ctx context.Context, doc DocumentRef, firstIndex int, chunks []string, embeddings [][]float32) error {
	return s.save(ctx, doc, firstIndex, chunks, embeddings)
}

// Search scores every chunk of the owner's active documents and returns the best matches.
func (s *SQLiteStore) Search(ctx context.Context, ownerID string, query []float32, limit int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.content, c.document_id, d.filename, c.embedding
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.owner_id = ? AND d.is_active = ?`,
		ownerID, true,
	)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "backend", "sqlite", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.Content, &r.DocumentID, &r.SourceFilename, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", r.ChunkID, err)
		}
		if len(vec) != len(query) {
			return nil, fmt.Errorf("chunk %s has dimension %d, query has %d", r.ChunkID, len(vec), len(query))
		}
		r.Similarity = cosineSimilarity(query, vec)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}

	logger.DebugContext(ctx, "search completed", "backend", "sqlite", "limit", limit, "results", len(results))
	return results, nil
}

// DeleteByDocument removes every chunk of a document.
func (s *SQLiteStore) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.deleteByDocument(ctx, documentID)
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
