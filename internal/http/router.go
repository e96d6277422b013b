package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gilda/internal/handlers"
	"gilda/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	ChatService     service.ChatService
	DocumentService service.DocumentService
	ShareService    service.ShareService
	HistoryService  service.HistoryService
	HealthChecks    []handlers.HealthCheck
	MaxUploadBytes  int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)
	r.Use(OwnerMiddleware)

	chatHandler := handlers.NewChatHandler(deps.ChatService)
	lookupHandler := handlers.NewLookupHandler(deps.ChatService)
	documentsHandler := handlers.NewDocumentsHandler(deps.DocumentService, deps.MaxUploadBytes)
	indexHandler := handlers.NewIndexHandler(deps.DocumentService)
	sharesHandler := handlers.NewSharesHandler(deps.ShareService)
	historyHandler := handlers.NewHistoryHandler(deps.HistoryService)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks...)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		// Chat and lookup accept either an owner or a share id.
		r.Method(http.MethodPost, "/chat", chatHandler)
		r.Method(http.MethodPost, "/lookup", lookupHandler)
		r.Get("/shares/{id}", sharesHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(RequireOwner)
			r.Post("/documents", documentsHandler.Upload)
			r.Get("/documents", documentsHandler.List)
			r.Delete("/documents/{id}", documentsHandler.Delete)
			r.Method(http.MethodPost, "/documents/reindex", indexHandler)
			r.Post("/shares", sharesHandler.Create)
			r.Delete("/shares/{id}", sharesHandler.Delete)
			r.Method(http.MethodGet, "/history", historyHandler)
		})
	})

	return r
}
