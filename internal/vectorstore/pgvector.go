package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"gilda/internal/contextutil"
	"gilda/internal/storage"
)

// PgVectorStore implements VectorStore on Postgres with the pgvector extension.
// Chunks live in the same database as their documents and cascade on delete.
type PgVectorStore struct {
	sqlChunkWriter
	efSearch int
}

// NewPgVectorStore creates a store on a Postgres handle.
// batchSize is the number of rows per INSERT statement.
func NewPgVectorStore(db *storage.DB, batchSize int) *PgVectorStore {
	return &PgVectorStore{
		sqlChunkWriter: sqlChunkWriter{
			db:          db,
			batchSize:   batchSize,
			concurrency: 4,
			encode: func(v []float32) any {
				return pgvector.NewVector(v)
			},
		},
		efSearch: 100,
	}
}

// EnsureSchema creates the vector extension, the chunks table and its HNSW index.
// If the table exists, validates that its vector dimension matches.
func (s *PgVectorStore) EnsureSchema(ctx context.Context, dimensions int) error {
	logger := contextutil.LoggerFromContext(ctx)

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply vector schema: %w", err)
		}
	}

	// For the vector type, atttypmod holds the declared dimension.
	var actual int
	err := s.db.QueryRowContext(ctx,
		`SELECT atttypmod FROM pg_attribute WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`,
	).Scan(&actual)
	if err != nil {
		return fmt.Errorf("failed to read embedding dimension: %w", err)
	}
	if actual != dimensions {
		return fmt.Errorf("chunks embedding dimension mismatch: expected %d, got %d", dimensions, actual)
	}

	logger.InfoContext(ctx, "vector schema ready", "backend", "pgvector", "dimensions", dimensions)
	return nil
}

// SaveChunks stores chunks with their embeddings.
func (s *PgVectorStore) SaveChunks(ctx context.Context, doc DocumentRef, firstIndex int, chunks []string, embeddings [][]float32) error {
	return s.save(ctx, doc, firstIndex, chunks, embeddings)
}

const nearestChunksQuery = `
		SELECT id, content, document_id, filename, distance FROM (
			SELECT c.id, c.content, c.document_id, d.filename, c.embedding <=> $1 AS distance
			FROM chunks c
			JOIN documents d ON d.id = c.document_id
			WHERE d.owner_id = $2 AND d.is_active
			ORDER BY c.embedding <=> $1
			LIMIT $3
		) nearest
		ORDER BY distance, id`

// Search runs a cosine nearest-neighbour query over the owner's active documents.
// The inner query can use the HNSW index; the outer query fixes the tie order.
// The owner filter is applied to index candidates, so the index scan keeps
// going (iterative scan) until enough rows pass it. When the index still
// returns fewer than limit rows, the query is repeated as an exact scan.
func (s *PgVectorStore) Search(ctx context.Context, ownerID string, query []float32, limit int) ([]SearchResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than 0")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	efSearch := max(s.efSearch, limit*4)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearch)); err != nil {
		return nil, fmt.Errorf("%w: failed to set ef_search: %v", ErrUnavailable, err)
	}
	if err := enableIterativeScan(ctx, tx); err != nil {
		return nil, err
	}

	vec := pgvector.NewVector(query)
	results, err := queryNearest(ctx, tx, vec, ownerID, limit)
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "backend", "pgvector", "error", err)
		return nil, err
	}

	if len(results) < limit {
		if _, err := tx.ExecContext(ctx, "SET LOCAL enable_indexscan = off"); err != nil {
			return nil, fmt.Errorf("%w: failed to disable index scan: %v", ErrUnavailable, err)
		}
		exact, err := queryNearest(ctx, tx, vec, ownerID, limit)
		if err != nil {
			logger.ErrorContext(ctx, "exact vector search failed", "backend", "pgvector", "error", err)
			return nil, err
		}
		logger.DebugContext(ctx, "index scan returned too few rows, used exact scan",
			"backend", "pgvector", "index_results", len(results), "exact_results", len(exact))
		results = exact
	}

	logger.DebugContext(ctx, "search completed", "backend", "pgvector", "limit", limit, "results", len(results))
	return results, nil
}

// enableIterativeScan turns on relaxed iterative index scans (pgvector 0.8+).
// Older extensions reject the setting; the savepoint keeps the transaction usable.
func enableIterativeScan(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT iterative_scan"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx, "SET LOCAL hnsw.iterative_scan = relaxed_order"); err != nil {
		contextutil.LoggerFromContext(ctx).DebugContext(ctx, "iterative index scan unavailable", "error", err)
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT iterative_scan"); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT iterative_scan"); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func queryNearest(ctx context.Context, tx *sql.Tx, vec pgvector.Vector, ownerID string, limit int) ([]SearchResult, error) {
	rows, err := tx.QueryContext(ctx, nearestChunksQuery, vec, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		if err := rows.Scan(&r.ChunkID, &r.Content, &r.DocumentID, &r.SourceFilename, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Similarity = 1 - distance
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return results, nil
}

// DeleteByDocument removes every chunk of a document.
func (s *PgVectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.deleteByDocument(ctx, documentID)
}

// Ping checks the database connection.
func (s *PgVectorStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}
