package handlers

import (
	"encoding/json"
	"net/http"

	"gilda/internal/contextutil"
	"gilda/internal/rag"
	"gilda/internal/service"
)

// LookupHandler expands a deep link clicked in an answer.
type LookupHandler struct {
	chatService service.ChatService
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(chatService service.ChatService) *LookupHandler {
	return &LookupHandler{chatService: chatService}
}

// LookupRequest represents the HTTP request payload for a deep-link lookup.
//
// swagger:model LookupRequest
type LookupRequest struct {
	Query   string `json:"query"`
	ShareID string `json:"shareId,omitempty"`
}

// LookupResponse represents the HTTP response payload for a deep-link lookup.
//
// swagger:model LookupResponse
type LookupResponse struct {
	Details string      `json:"details"`
	Sources []rag.Match `json:"sources"`
}

// ServeHTTP handles HTTP requests for lookups.
//
// swagger:route POST /api/lookup lookup
//
// # Expand a deep link
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/LookupRequest"
//
// responses:
//
//	'200':
//	  description: Detailed explanation of the linked term
//	  schema:
//	    "$ref": "#/definitions/LookupResponse"
//	'400':
//	  description: Bad request (empty query)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: LLM or embedding service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *LookupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chatService.Lookup(ctx, service.LookupRequest{
		OwnerID: contextutil.OwnerIDFromContext(ctx),
		ShareID: req.ShareID,
		Query:   req.Query,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to look up details")
		return
	}

	out := LookupResponse{Details: resp.Details, Sources: resp.Sources}
	if out.Sources == nil {
		out.Sources = []rag.Match{}
	}
	writeJSON(ctx, w, http.StatusOK, out)
}
