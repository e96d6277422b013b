package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks gilda/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Create inserts a new active document. ID and CreatedAt are filled in when empty.
	Create(ctx context.Context, doc *Document) error
	// GetByID returns the owner's document. Returns ErrNotFound if missing or owned by someone else.
	GetByID(ctx context.Context, ownerID, id string) (*Document, error)
	// ListByOwner returns the owner's documents, newest first, without their text.
	ListByOwner(ctx context.Context, ownerID string) ([]*Document, error)
	// ListActive returns the owner's active documents with text, oldest first.
	ListActive(ctx context.Context, ownerID string) ([]*Document, error)
	// UpdateChunkCount records how many chunks were indexed for a document.
	UpdateChunkCount(ctx context.Context, id string, count int) error
	// Supersede deactivates the owner's other active documents with the same filename
	// and returns their IDs.
	Supersede(ctx context.Context, ownerID, filename, keepID string) ([]string, error)
	// Withdraw deactivates a document if the owner has another active document
	// with the same filename, and reports whether it did.
	Withdraw(ctx context.Context, ownerID, filename, id string) (bool, error)
	// Delete removes the owner's document. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, ownerID, id string) error
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a new active document.
func (r *DocumentRepo) Create(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.Active = true

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO documents (id, owner_id, filename, content_text, size_bytes, is_active, chunk_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		doc.ID, doc.OwnerID, doc.Filename, doc.Text, doc.SizeBytes, true, doc.ChunkCount, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetByID returns the owner's document including its text.
func (r *DocumentRepo) GetByID(ctx context.Context, ownerID, id string) (*Document, error) {
	var doc Document
	err := r.db.QueryRowContext(ctx, r.db.Rebind(
		`SELECT id, owner_id, filename, content_text, size_bytes, is_active, chunk_count, created_at
		 FROM documents WHERE id = ? AND owner_id = ?`),
		id, ownerID,
	).Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.Text, &doc.SizeBytes, &doc.Active, &doc.ChunkCount, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &doc, nil
}

// ListByOwner returns the owner's documents, newest first, without their text.
func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID string) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, owner_id, filename, size_bytes, is_active, chunk_count, created_at
		 FROM documents WHERE owner_id = ?
		 ORDER BY created_at DESC, id`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.SizeBytes, &doc.Active, &doc.ChunkCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// ListActive returns the owner's active documents with text, oldest first.
func (r *DocumentRepo) ListActive(ctx context.Context, ownerID string) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, owner_id, filename, content_text, size_bytes, is_active, chunk_count, created_at
		 FROM documents WHERE owner_id = ? AND is_active = ?
		 ORDER BY created_at, id`),
		ownerID, true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.Text, &doc.SizeBytes, &doc.Active, &doc.ChunkCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return docs, nil
}

// UpdateChunkCount records how many chunks were indexed for a document.
func (r *DocumentRepo) UpdateChunkCount(ctx context.Context, id string, count int) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE documents SET chunk_count = ? WHERE id = ?`), count, id)
	if err != nil {
		return fmt.Errorf("failed to update chunk count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Supersede deactivates the owner's other active documents named filename.
func (r *DocumentRepo) Supersede(ctx context.Context, ownerID, filename, keepID string) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, r.db.Rebind(
		`SELECT id FROM documents
		 WHERE owner_id = ? AND filename = ? AND is_active = ? AND id <> ?
		 ORDER BY id`),
		ownerID, filename, true, keepID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query superseded documents: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	_ = rows.Close()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, r.db.Rebind(`UPDATE documents SET is_active = ? WHERE id = ?`), false, id); err != nil {
			return nil, fmt.Errorf("failed to deactivate document %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return ids, nil
}

// Withdraw deactivates id when another active version of filename exists, so a
// failed re-upload does not sit next to the version it was meant to replace.
func (r *DocumentRepo) Withdraw(ctx context.Context, ownerID, filename, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE documents SET is_active = ?
		 WHERE id = ? AND owner_id = ? AND EXISTS (
			SELECT 1 FROM documents o
			WHERE o.owner_id = ? AND o.filename = ? AND o.is_active = ? AND o.id <> ?
		 )`),
		false, id, ownerID, ownerID, filename, true, id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to withdraw document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes the owner's document. Chunk rows cascade with it.
func (r *DocumentRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM documents WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
