package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_service.go -package=mocks gilda/internal/service HistoryService

import (
	"context"

	"gilda/internal/storage"
)

const (
	// DefaultHistoryLimit is used when a request does not set a limit.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps the number of turns returned.
	MaxHistoryLimit = 500
)

// HistoryService exposes the chat audit log.
type HistoryService interface {
	ListRecent(ctx context.Context, ownerID string, limit int) ([]storage.ChatTurn, error)
}

type historyService struct {
	history storage.HistoryStore
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(history storage.HistoryStore) HistoryService {
	return &historyService{history: history}
}

func (s *historyService) ListRecent(ctx context.Context, ownerID string, limit int) ([]storage.ChatTurn, error) {
	if ownerID == "" {
		return nil, ErrUnauthorized
	}
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	turns, err := s.history.ListRecent(ctx, ownerID, limit)
	if err != nil {
		return nil, WrapError(err, "failed to list chat history")
	}
	if turns == nil {
		turns = []storage.ChatTurn{}
	}
	return turns, nil
}
