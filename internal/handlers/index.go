package handlers

import (
	"encoding/json"
	"net/http"

	"gilda/internal/contextutil"
	"gilda/internal/indexer"
	"gilda/internal/service"
)

// IndexHandler handles HTTP requests for re-indexing the owner's documents.
type IndexHandler struct {
	documentService service.DocumentService
}

// NewIndexHandler creates a new IndexHandler.
func NewIndexHandler(documentService service.DocumentService) *IndexHandler {
	return &IndexHandler{
		documentService: documentService,
	}
}

// ServeHTTP re-embeds every active document of the owner and streams
// progress as newline-delimited JSON.
//
// swagger:route POST /api/documents/reindex reindexDocuments
//
// # Re-index documents
//
// Rebuilds the chunks of every active document, for example after the
// embedding model changed.
//
// ---
// produces:
// - application/x-ndjson
// responses:
//
//	'200':
//	  description: Progress events, one JSON object per line
//	'401':
//	  description: Missing owner
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	logger.InfoContext(ctx, "re-indexing triggered via API")

	stream := newProgressStream(w)
	err := h.documentService.Reindex(ctx, contextutil.OwnerIDFromContext(ctx), stream.emit)
	if err == nil {
		return
	}
	if !stream.started {
		handleServiceError(ctx, w, err, "Failed to reindex documents")
		return
	}
	logger.WarnContext(ctx, "re-indexing finished with errors", "error", err)
}

// progressStream writes pipeline events as NDJSON. Headers are sent with the
// first event so that errors raised before any progress can still be
// reported with a regular status code.
type progressStream struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flusher http.Flusher
	started bool
}

func newProgressStream(w http.ResponseWriter) *progressStream {
	flusher, _ := w.(http.Flusher)
	return &progressStream{w: w, enc: json.NewEncoder(w), flusher: flusher}
}

func (s *progressStream) emit(ev indexer.ProgressEvent) error {
	if !s.started {
		s.started = true
		s.w.Header().Set("Content-Type", "application/x-ndjson")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.WriteHeader(http.StatusOK)
	}
	if err := s.enc.Encode(ev); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
