package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks gilda/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HistoryStore records chat turns for auditing. History is never fed back
// into prompts; the client owns the conversation it sends.
type HistoryStore interface {
	// Append stores turns in order.
	Append(ctx context.Context, turns ...ChatTurn) error
	// ListRecent returns up to limit of the owner's latest turns in chronological order.
	ListRecent(ctx context.Context, ownerID string, limit int) ([]ChatTurn, error)
}

// HistoryRepo implements HistoryStore.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Append stores turns in a single transaction.
func (r *HistoryRepo) Append(ctx context.Context, turns ...ChatTurn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
		`INSERT INTO chat_history (id, owner_id, document_id, share_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	base := time.Now().UTC()
	for i, turn := range turns {
		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.CreatedAt.IsZero() {
			// Keep turns of one call strictly ordered.
			turn.CreatedAt = base.Add(time.Duration(i) * time.Microsecond)
		}
		if _, err := stmt.ExecContext(ctx, turn.ID, turn.OwnerID, nullString(turn.DocumentID), nullString(turn.ShareID),
			turn.Role, turn.Content, turn.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert chat turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListRecent returns up to limit of the owner's latest turns, oldest first.
func (r *HistoryRepo) ListRecent(ctx context.Context, ownerID string, limit int) ([]ChatTurn, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(
		`SELECT id, owner_id, document_id, share_id, role, content, created_at
		 FROM chat_history WHERE owner_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`),
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []ChatTurn
	for rows.Next() {
		var turn ChatTurn
		var documentID, shareID sql.NullString
		if err := rows.Scan(&turn.ID, &turn.OwnerID, &documentID, &shareID, &turn.Role, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turn.DocumentID = documentID.String
		turn.ShareID = shareID.String
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	// Reverse to chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
