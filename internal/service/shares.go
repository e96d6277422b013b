package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_share_service.go -package=mocks gilda/internal/service ShareService

import (
	"context"
	"regexp"
	"strings"
	"time"

	"gilda/internal/contextutil"
	"gilda/internal/rag"
	"gilda/internal/share"
	"gilda/internal/storage"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CreateShareRequest describes a new share link.
type CreateShareRequest struct {
	OwnerID           string
	BrandColor        string
	BrandTransparency *float64 // nil means the default
	PublicTitle       string
	PublicDescription string
}

// CreateShareResponse identifies the created share.
type CreateShareResponse struct {
	ShareID   string
	ShareURL  string
	ExpiresAt time.Time
}

// ShareInfo is the public view of a share. It never includes document text.
type ShareInfo struct {
	ID                string
	BrandColor        string
	BrandTransparency float64
	PublicTitle       string
	PublicDescription string
	Documents         []share.DocumentSummary
	CreatedAt         time.Time
	ExpiresAt         time.Time
	Hits              int64
}

// ShareService creates and resolves public share links.
type ShareService interface {
	Create(ctx context.Context, req CreateShareRequest) (CreateShareResponse, error)
	Get(ctx context.Context, id string) (ShareInfo, error)
	// Delete revokes one of the owner's shares.
	Delete(ctx context.Context, ownerID, id string) error
}

type shareService struct {
	shares    share.Store
	documents storage.DocumentStore
	baseURL   string
}

// NewShareService creates a new ShareService. baseURL prefixes the returned share URLs.
func NewShareService(shares share.Store, documents storage.DocumentStore, baseURL string) ShareService {
	return &shareService{
		shares:    shares,
		documents: documents,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

// Create snapshots the owner's active documents into a new share.
func (s *shareService) Create(ctx context.Context, req CreateShareRequest) (CreateShareResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if req.OwnerID == "" {
		return CreateShareResponse{}, ErrUnauthorized
	}
	if err := validateBranding(req); err != nil {
		return CreateShareResponse{}, err
	}

	docs, err := s.documents.ListActive(ctx, req.OwnerID)
	if err != nil {
		return CreateShareResponse{}, WrapError(err, "failed to list documents")
	}
	if len(docs) == 0 {
		return CreateShareResponse{}, &ValidationError{Field: "documents", Message: "upload at least one document before sharing"}
	}

	rec := &share.Record{
		OwnerID:           req.OwnerID,
		Content:           rag.CombineDocuments(docs),
		BrandColor:        req.BrandColor,
		BrandTransparency: share.DefaultBrandTransparency,
		PublicTitle:       strings.TrimSpace(req.PublicTitle),
		PublicDescription: strings.TrimSpace(req.PublicDescription),
	}
	if req.BrandTransparency != nil {
		rec.BrandTransparency = *req.BrandTransparency
	}
	for _, doc := range docs {
		rec.Documents = append(rec.Documents, share.DocumentSummary{Filename: doc.Filename, SizeBytes: doc.SizeBytes})
	}

	if err := s.shares.Create(ctx, rec); err != nil {
		logger.ErrorContext(ctx, "failed to create share", "error", err)
		return CreateShareResponse{}, WrapError(err, "failed to create share")
	}

	return CreateShareResponse{
		ShareID:   rec.ID,
		ShareURL:  s.baseURL + "/share/" + rec.ID,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func validateBranding(req CreateShareRequest) error {
	if req.BrandColor != "" && !hexColor.MatchString(req.BrandColor) {
		return &ValidationError{Field: "brandColor", Message: "must be a hex color like #4880db"}
	}
	if t := req.BrandTransparency; t != nil && (*t < 0 || *t > 1) {
		return &ValidationError{Field: "brandTransparency", Message: "must be between 0 and 1"}
	}
	return nil
}

// Get returns the public metadata of a share and counts the visit.
func (s *shareService) Get(ctx context.Context, id string) (ShareInfo, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rec, err := s.shares.Get(ctx, id)
	if err != nil {
		return ShareInfo{}, classify(err, "failed to load share")
	}

	info := ShareInfo{
		ID:                rec.ID,
		BrandColor:        rec.BrandColor,
		BrandTransparency: rec.BrandTransparency,
		PublicTitle:       rec.PublicTitle,
		PublicDescription: rec.PublicDescription,
		Documents:         rec.Documents,
		CreatedAt:         rec.CreatedAt,
		ExpiresAt:         rec.ExpiresAt,
	}
	if info.Documents == nil {
		info.Documents = []share.DocumentSummary{}
	}

	access, err := s.shares.RecordAccess(ctx, id)
	if err != nil {
		logger.WarnContext(ctx, "failed to record share access", "share_id", id, "error", err)
	} else {
		info.Hits = access.Hits
	}
	return info, nil
}

// Delete revokes a share. Shares of other owners are reported as not found.
func (s *shareService) Delete(ctx context.Context, ownerID, id string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if ownerID == "" {
		return ErrUnauthorized
	}

	rec, err := s.shares.Get(ctx, id)
	if err != nil {
		return classify(err, "failed to load share")
	}
	if rec.OwnerID != ownerID {
		return classify(share.ErrNotFound, "failed to load share")
	}
	if err := s.shares.Delete(ctx, id); err != nil {
		return classify(err, "failed to delete share")
	}

	logger.InfoContext(ctx, "share revoked", "owner_id", ownerID, "share_id", id)
	return nil
}
