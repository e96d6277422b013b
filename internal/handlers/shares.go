package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gilda/internal/contextutil"
	"gilda/internal/service"
	"gilda/internal/share"
)

// SharesHandler serves share link creation and public share metadata.
type SharesHandler struct {
	shareService service.ShareService
}

// NewSharesHandler creates a new SharesHandler.
func NewSharesHandler(shareService service.ShareService) *SharesHandler {
	return &SharesHandler{shareService: shareService}
}

// CreateShareRequest represents the HTTP request payload for a new share.
//
// swagger:model CreateShareRequest
type CreateShareRequest struct {
	BrandColor        string   `json:"brandColor,omitempty"`
	BrandTransparency *float64 `json:"brandTransparency,omitempty"`
	PublicTitle       string   `json:"publicTitle,omitempty"`
	PublicDescription string   `json:"publicDescription,omitempty"`
}

// CreateShareResponse represents the HTTP response payload for a new share.
//
// swagger:model CreateShareResponse
type CreateShareResponse struct {
	ShareID   string    `json:"shareId"`
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ShareResponse is the public metadata of a share.
//
// swagger:model ShareResponse
type ShareResponse struct {
	ID                string                  `json:"id"`
	BrandColor        string                  `json:"brandColor"`
	BrandTransparency float64                 `json:"brandTransparency"`
	PublicTitle       string                  `json:"publicTitle,omitempty"`
	PublicDescription string                  `json:"publicDescription,omitempty"`
	Documents         []share.DocumentSummary `json:"documents"`
	CreatedAt         time.Time               `json:"createdAt"`
	ExpiresAt         time.Time               `json:"expiresAt"`
	Hits              int64                   `json:"hits"`
}

// Create snapshots the owner's documents into a new share link.
//
// swagger:route POST /api/shares createShare
//
// # Create a share link
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: false
//     schema:
//     "$ref": "#/definitions/CreateShareRequest"
//
// responses:
//
//	'201':
//	  description: Share created
//	  schema:
//	    "$ref": "#/definitions/CreateShareResponse"
//	'400':
//	  description: Invalid branding or no documents
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'401':
//	  description: Missing owner
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SharesHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req CreateShareRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.WarnContext(ctx, "invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	resp, err := h.shareService.Create(ctx, service.CreateShareRequest{
		OwnerID:           contextutil.OwnerIDFromContext(ctx),
		BrandColor:        req.BrandColor,
		BrandTransparency: req.BrandTransparency,
		PublicTitle:       req.PublicTitle,
		PublicDescription: req.PublicDescription,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to create share")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, CreateShareResponse{
		ShareID:   resp.ShareID,
		ShareURL:  resp.ShareURL,
		ExpiresAt: resp.ExpiresAt,
	})
}

// Get returns the public metadata of a share.
//
// swagger:route GET /api/shares/{id} getShare
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Share metadata
//	  schema:
//	    "$ref": "#/definitions/ShareResponse"
//	'404':
//	  description: Share not found or expired
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SharesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.shareService.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load share")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ShareResponse{
		ID:                info.ID,
		BrandColor:        info.BrandColor,
		BrandTransparency: info.BrandTransparency,
		PublicTitle:       info.PublicTitle,
		PublicDescription: info.PublicDescription,
		Documents:         info.Documents,
		CreatedAt:         info.CreatedAt,
		ExpiresAt:         info.ExpiresAt,
		Hits:              info.Hits,
	})
}

// Delete revokes one of the owner's shares.
//
// swagger:route DELETE /api/shares/{id} revokeShare
//
// ---
// responses:
//
//	'204':
//	  description: Share revoked
//	'404':
//	  description: Share not found
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SharesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.shareService.Delete(ctx, contextutil.OwnerIDFromContext(ctx), chi.URLParam(r, "id")); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete share")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
