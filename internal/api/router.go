package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.ViewDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Sections.
	r.Get("/sections", h.ViewSection)
	r.Post("/sections", h.EditSections)

	// Tasks.
	r.Get("/tasks", h.ListTasks)
	r.Get("/tasks/next", h.NextTask)
	r.Post("/tasks/complete", h.CompleteTask)

	// Archiving.
	r.Post("/archive", h.ArchiveDocument)
	r.Post("/archive/folder", h.ArchiveFolder)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
