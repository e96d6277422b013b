package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gilda/internal/contextutil"
	"gilda/internal/llm"
	"gilda/internal/rag"
	"gilda/internal/service"
)

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
//
// swagger:model ChatRequest
type ChatRequest struct {
	// The user's question
	Message string `json:"message"`

	// Previous turns, oldest first
	ConversationHistory []llm.Message `json:"conversationHistory,omitempty"`

	// Answer from a share snapshot instead of the owner's documents
	ShareID string `json:"shareId,omitempty"`
}

// ChatResponse represents the HTTP response payload for chat.
//
// swagger:model ChatResponse
type ChatResponse struct {
	// The generated answer, markdown with deep links
	Message string `json:"message"`

	// History including this exchange
	ConversationHistory []llm.Message `json:"conversationHistory"`

	// Chunks the answer was grounded on
	Sources []rag.Match `json:"sources"`

	// Deep links found in the answer
	DeepLinks []rag.DeepLink `json:"deepLinks"`
}

// streamDelta is one SSE frame of a streamed answer.
type streamDelta struct {
	Delta string `json:"delta"`
}

func newChatResponse(resp service.ChatResponse) ChatResponse {
	out := ChatResponse{
		Message:             resp.Message,
		ConversationHistory: resp.History,
		Sources:             resp.Sources,
		DeepLinks:           resp.DeepLinks,
	}
	if out.Sources == nil {
		out.Sources = []rag.Match{}
	}
	if out.DeepLinks == nil {
		out.DeepLinks = []rag.DeepLink{}
	}
	return out
}

// ServeHTTP handles HTTP requests for chat.
//
// swagger:route POST /api/chat chat
//
// # Ask a question about uploaded documents
//
// Answers from the owner's documents, or from a share snapshot when shareId is set.
// Use the `stream=true` query parameter to receive the answer as Server-Sent Events.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// - text/event-stream
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/ChatRequest"
//   - in: query
//     name: stream
//     type: boolean
//     required: false
//
// responses:
//
//	'200':
//	  description: Answer with sources and deep links
//	  schema:
//	    "$ref": "#/definitions/ChatResponse"
//	'400':
//	  description: Bad request (empty message)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'401':
//	  description: Missing owner
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: LLM or embedding service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Convert HTTP request to service request
	svcReq := service.ChatRequest{
		OwnerID: contextutil.OwnerIDFromContext(ctx),
		ShareID: req.ShareID,
		Message: req.Message,
		History: req.ConversationHistory,
	}

	// Check if streaming is requested
	if r.URL.Query().Get("stream") == "true" {
		h.handleStreamingChat(ctx, w, svcReq)
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, svcReq)
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to process chat request")
		return
	}

	writeJSON(ctx, w, http.StatusOK, newChatResponse(svcResp))
}

// handleStreamingChat streams the answer as Server-Sent Events. Each delta is a
// JSON frame, followed by the full response frame and a [DONE] marker.
func (h *ChatHandler) handleStreamingChat(ctx context.Context, w http.ResponseWriter, svcReq service.ChatRequest) {
	logger := contextutil.LoggerFromContext(ctx)

	// Create a flusher to send data immediately
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		// Set up Server-Sent Events headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
	}
	send := func(v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		start()
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	svcResp, err := h.chatService.StreamChat(ctx, svcReq, func(chunk string) error {
		return send(streamDelta{Delta: chunk})
	})
	if err != nil {
		if !started {
			handleServiceError(ctx, w, err, "Failed to process chat request")
			return
		}
		logger.ErrorContext(ctx, "error streaming chat", "error", err)
		_ = send(ErrorResponse{Error: "Failed to process chat request"})
		return
	}

	if err := send(newChatResponse(svcResp)); err != nil {
		logger.WarnContext(ctx, "failed to write final frame", "error", err)
		return
	}

	// Send done signal
	_, _ = fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}
