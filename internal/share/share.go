package share

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks gilda/internal/share Store

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultBrandColor is used when a share does not set a brand color.
	DefaultBrandColor = "#4880db"
	// DefaultBrandTransparency is used when a share does not set a transparency.
	DefaultBrandTransparency = 0.5
)

// ErrNotFound is returned for unknown or expired shares.
var ErrNotFound = errors.New("share not found")

// DocumentSummary describes one document included in a share.
type DocumentSummary struct {
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Record maps a public share ID to the owner whose documents it exposes.
// Content is a snapshot of the owner's document text at share time.
type Record struct {
	ID                string            `json:"id"`
	OwnerID           string            `json:"ownerId"`
	Content           string            `json:"content"`
	Documents         []DocumentSummary `json:"documents"`
	BrandColor        string            `json:"brandColor"`
	BrandTransparency float64           `json:"brandTransparency"`
	PublicTitle       string            `json:"publicTitle,omitempty"`
	PublicDescription string            `json:"publicDescription,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	ExpiresAt         time.Time         `json:"expiresAt"`
}

// Access is the usage counter of a share.
type Access struct {
	Hits       int64     `json:"hits"`
	LastAccess time.Time `json:"lastAccess,omitzero"`
}

// Store persists share records with a fixed time to live.
type Store interface {
	// Create assigns an ID, CreatedAt and ExpiresAt, then stores the record.
	Create(ctx context.Context, rec *Record) error
	// Get returns ErrNotFound for unknown or expired IDs.
	Get(ctx context.Context, id string) (*Record, error)
	// RecordAccess counts one visit and returns the updated counter.
	RecordAccess(ctx context.Context, id string) (Access, error)
	// Delete removes a share and its counters.
	Delete(ctx context.Context, id string) error
	// Ping checks the backing store.
	Ping(ctx context.Context) error
}
