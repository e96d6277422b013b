package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gilda/internal/contextutil"
	"gilda/internal/indexer"
	"gilda/internal/service"
)

// Multipart field names accepted for uploaded files.
const (
	uploadField      = "pdf"
	uploadFieldMulti = "files"
)

// DocumentsHandler serves document upload, listing and deletion.
type DocumentsHandler struct {
	documentService service.DocumentService
	maxUploadBytes  int64
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(documentService service.DocumentService, maxUploadBytes int64) *DocumentsHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &DocumentsHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// DocumentResponse is one document in a listing.
//
// swagger:model DocumentResponse
type DocumentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"sizeBytes"`
	Active     bool      `json:"active"`
	ChunkCount int       `json:"chunkCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DocumentListResponse is the document listing with indexing statistics.
//
// swagger:model DocumentListResponse
type DocumentListResponse struct {
	Documents []DocumentResponse             `json:"documents"`
	Stats     *indexer.IndexingCoverageStats `json:"stats,omitempty"`
}

// Upload accepts a multipart form with one or more PDF files and streams
// ingestion progress as newline-delimited JSON.
//
// swagger:route POST /api/documents uploadDocuments
//
// # Upload PDF documents
//
// ---
// consumes:
// - multipart/form-data
// produces:
// - application/x-ndjson
// responses:
//
//	'200':
//	  description: Progress events, one JSON object per line
//	'400':
//	  description: No files or not a PDF
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'401':
//	  description: Missing owner
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'413':
//	  description: Upload too large
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.ContentLength > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit))
			return
		}
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File[uploadField]...)
	headers = append(headers, r.MultipartForm.File[uploadFieldMulti]...)

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readFormFile(fh)
		if err != nil {
			logger.WarnContext(ctx, "failed to read uploaded file", "filename", fh.Filename, "error", err)
			writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		files = append(files, service.UploadFile{Filename: fh.Filename, Data: data})
	}

	stream := newProgressStream(w)
	err := h.documentService.Upload(ctx, contextutil.OwnerIDFromContext(ctx), files, stream.emit)
	if err == nil {
		return
	}
	if !stream.started {
		handleServiceError(ctx, w, err, "Failed to process upload")
		return
	}
	// The pipeline has already reported the failure as an error event.
	logger.WarnContext(ctx, "upload finished with errors", "error", err)
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return io.ReadAll(f)
}

// List returns the owner's documents and indexing statistics.
//
// swagger:route GET /api/documents listDocuments
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Active documents
//	  schema:
//	    "$ref": "#/definitions/DocumentListResponse"
//	'401':
//	  description: Missing owner
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.documentService.List(ctx, contextutil.OwnerIDFromContext(ctx))
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to list documents")
		return
	}

	resp := DocumentListResponse{
		Documents: make([]DocumentResponse, 0, len(list.Documents)),
		Stats:     list.Stats,
	}
	for _, doc := range list.Documents {
		resp.Documents = append(resp.Documents, DocumentResponse{
			ID:         doc.ID,
			Filename:   doc.Filename,
			SizeBytes:  doc.SizeBytes,
			Active:     doc.Active,
			ChunkCount: doc.ChunkCount,
			CreatedAt:  doc.CreatedAt,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Delete removes one of the owner's documents.
//
// swagger:route DELETE /api/documents/{id} deleteDocument
//
// ---
// responses:
//
//	'204':
//	  description: Document deleted
//	'404':
//	  description: Document not found
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if err := h.documentService.Delete(ctx, contextutil.OwnerIDFromContext(ctx), id); err != nil {
		handleServiceError(ctx, w, err, "Failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
