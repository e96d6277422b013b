package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gilda/internal/contextutil"
	"gilda/internal/service"
)

// HistoryHandler serves the owner's audited chat turns.
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// ChatTurnResponse is one audited chat message.
//
// swagger:model ChatTurnResponse
type ChatTurnResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ShareID   string    `json:"shareId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ServeHTTP handles GET /api/history?limit=N.
//
// swagger:route GET /api/history history
//
// # List recent chat messages
//
// ---
// produces:
// - application/json
// parameters:
//   - in: query
//     name: limit
//     type: integer
//     required: false
//
// responses:
//
//	'200':
//	  description: Audited messages, newest first
//	  schema:
//	    type: array
//	    items:
//	      "$ref": "#/definitions/ChatTurnResponse"
//	'400':
//	  description: Invalid limit
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'401':
//	  description: Missing owner
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	turns, err := h.historyService.ListRecent(ctx, contextutil.OwnerIDFromContext(ctx), limit)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to load chat history")
		return
	}

	resp := make([]ChatTurnResponse, 0, len(turns))
	for _, turn := range turns {
		resp = append(resp, ChatTurnResponse{
			ID:        turn.ID,
			Role:      turn.Role,
			Content:   turn.Content,
			ShareID:   turn.ShareID,
			CreatedAt: turn.CreatedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
