package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/docservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docPath extracts the document path from the URL (everything after the
// route prefix) as a canonical slash-rooted path. Supports encoded slashes
// from OpenAPI clients (e.g. api%2Fguide.md).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return "/" + raw
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, apperr.Wrap(apperr.CodeMissingParameter, "invalid request body", err))
		return false
	}
	return true
}

// ListDocuments handles GET /documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), docservice.ListDocumentsRequest{Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

// CreateDocument handles POST /documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req docservice.CreateDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ViewDocument handles GET /documents/*. A ?section= query switches to the
// single-section view.
func (h *Handler) ViewDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if section := r.URL.Query().Get("section"); section != "" {
		sec, err := h.svc.ViewSection(r.Context(), docservice.ViewSectionRequest{Document: path, Section: section})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)
		return
	}
	doc, err := h.svc.ViewDocument(r.Context(), docservice.ViewDocumentRequest{Document: path})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /documents/*.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDocument(r.Context(), docservice.DeleteDocumentRequest{Document: docPath(r)}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditSections handles POST /sections: a batch of structural edits against
// one document.
func (h *Handler) EditSections(w http.ResponseWriter, r *http.Request) {
	var req docservice.EditSectionsRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := h.svc.EditSections(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ViewSection handles GET /sections.
func (h *Handler) ViewSection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sec, err := h.svc.ViewSection(r.Context(), docservice.ViewSectionRequest{
		Document: q.Get("document"),
		Section:  q.Get("section"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// ListTasks handles GET /tasks.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTasks(r.Context(), docservice.ListTasksRequest{Document: r.URL.Query().Get("document")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// NextTask handles GET /tasks/next.
func (h *Handler) NextTask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	next, err := h.svc.NextTask(r.Context(), docservice.NextTaskRequest{
		Document: q.Get("document"),
		After:    q.Get("after"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// CompleteTask handles POST /tasks/complete.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	var req docservice.CompleteTaskRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.svc.CompleteTask(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ArchiveDocument handles POST /archive.
func (h *Handler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	var req docservice.ArchiveDocumentRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.ArchiveDocument(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ArchiveFolder handles POST /archive/folder.
func (h *Handler) ArchiveFolder(w http.ResponseWriter, r *http.Request) {
	var req docservice.ArchiveFolderRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := h.svc.ArchiveFolder(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	results, err := h.svc.Search(r.Context(), docservice.SearchRequest{Query: q.Get("q"), Limit: limit})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
