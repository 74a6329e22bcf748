// Package docservice coordinates the document store, cache, guard, task
// engine, archive manager, and search index behind one typed operation
// surface shared by the REST API and the MCP server.
package docservice

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/addr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/archive"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/checksum"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/doccache"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/index"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/sections"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/storage"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/tasks"
)

// Publisher receives document change notifications from mutating operations.
type Publisher interface {
	PublishDocumentEvent(kind, path string)
}

type nopPublisher struct{}

func (nopPublisher) PublishDocumentEvent(string, string) {}

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path        string             `json:"path"`
	Title       string             `json:"title"`
	Frontmatter map[string]any     `json:"frontmatter,omitempty"`
	Headings    []sections.Heading `json:"headings"`
	Content     string             `json:"content"`
	Checksum    string             `json:"checksum"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// SectionDetail is one section of a document, span text included.
type SectionDetail struct {
	Path     string   `json:"path"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Depth    int      `json:"depth"`
	Body     string   `json:"body"`
	Children []string `json:"children,omitempty"`
}

// TaskList pairs a document's tasks with their per-phase summary.
type TaskList struct {
	Tasks   []tasks.Task                  `json:"tasks"`
	Summary map[string]tasks.StatusCounts `json:"summary"`
}

// DocumentListItem is a lightweight entry in a listing response.
type DocumentListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates all document operations.
type Service struct {
	store    storage.Provider
	cache    *doccache.Cache
	guard    *storage.Guard
	resolver *addr.Resolver
	engine   *tasks.Engine
	archives *archive.Manager
	db       *index.DB
	events   Publisher
}

// NewService creates a Service. events may be nil.
func NewService(store storage.Provider, cache *doccache.Cache, guard *storage.Guard,
	resolver *addr.Resolver, engine *tasks.Engine, archives *archive.Manager,
	db *index.DB, events Publisher) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{
		store:    store,
		cache:    cache,
		guard:    guard,
		resolver: resolver,
		engine:   engine,
		archives: archives,
		db:       db,
		events:   events,
	}
}

// ViewDocument loads a document through the cache.
func (s *Service) ViewDocument(_ context.Context, req ViewDocumentRequest) (*DocumentDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return nil, err
	}
	return s.detail(docPath)
}

// ViewSection loads one section. The section slug may come either from the
// Section field or from a #fragment on the document path.
func (s *Service) ViewSection(_ context.Context, req ViewSectionRequest) (*SectionDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a, err := s.resolver.Resolve(req.Document)
	if err != nil {
		return nil, err
	}
	slug := req.Section
	if slug == "" {
		slug = a.Section
	}
	if slug == "" {
		return nil, apperr.New(apperr.CodeMissingParameter, "section is required")
	}

	rec, err := s.cache.Get(a.DocumentPath)
	if err != nil {
		return nil, err
	}
	doc := &sections.Document{Headings: rec.Headings}
	h, ok := doc.Heading(slug)
	if !ok {
		return nil, apperr.Newf(apperr.CodeSectionNotFound, "section not found: %s", slug).
			With("document", a.DocumentPath).
			With("section", slug)
	}

	var children []string
	for _, c := range doc.Children(h) {
		children = append(children, c.Slug)
	}
	return &SectionDetail{
		Path:     a.DocumentPath,
		Slug:     h.Slug,
		Title:    h.Title,
		Depth:    h.Depth,
		Body:     sections.Body(rec.Content, h),
		Children: children,
	}, nil
}

// CreateDocument writes a new document and indexes it. An existing document
// at the same path fails with ALREADY_EXISTS.
func (s *Service) CreateDocument(_ context.Context, req CreateDocumentRequest) (*DocumentDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Path)
	if err != nil {
		return nil, err
	}
	rel := addr.Rel(docPath)

	if _, err := s.store.Stat(rel); err == nil {
		return nil, apperr.Newf(apperr.CodeAlreadyExists, "document already exists: %s", docPath).
			With("document", docPath)
	}

	content := req.Content
	if content == "" {
		content = "# " + req.Title + "\n"
	}
	if err := s.store.Write(rel, []byte(content)); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "write document", err).With("document", docPath)
	}
	if err := index.IndexDocument(s.db, docPath, []byte(content)); err != nil {
		return nil, err
	}
	s.events.PublishDocumentEvent("created", docPath)
	return s.detail(docPath)
}

// DeleteDocument removes a document from the store, cache, and index.
func (s *Service) DeleteDocument(_ context.Context, req DeleteDocumentRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return err
	}
	if err := s.store.Delete(addr.Rel(docPath)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.Newf(apperr.CodeDocumentNotFound, "document not found: %s", docPath).
				With("document", docPath)
		}
		return apperr.Wrap(apperr.CodeInternal, "delete document", err).With("document", docPath)
	}
	s.cache.Invalidate(docPath)
	if err := s.db.DeleteDocument(docPath); err != nil {
		return err
	}
	s.events.PublishDocumentEvent("deleted", docPath)
	return nil
}

// EditSections applies a batch of section edits as one optimistic
// read-transform-write. Validation, including the batch size cap, runs
// before any I/O; a version conflict fails the whole batch with CONFLICT
// and leaves the file untouched.
func (s *Service) EditSections(_ context.Context, req EditSectionsRequest) (*DocumentDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return nil, err
	}
	rel := addr.Rel(docPath)

	snap, err := s.guard.Snapshot(rel)
	if err != nil {
		return nil, err
	}

	content := string(snap.Content)
	for i, op := range req.Operations {
		content, err = sections.Apply(content, sections.Edit{
			Section: op.Section,
			Op:      sections.Op(op.Operation),
			Title:   op.Title,
			Content: op.Content,
			Depth:   op.Depth,
		})
		if err != nil {
			return nil, apperr.From(err).With("document", docPath).With("operation_index", i)
		}
	}

	if err := s.guard.WriteIfUnchanged(rel, snap.Version, []byte(content)); err != nil {
		return nil, err
	}
	s.cache.Invalidate(docPath)
	if err := index.IndexDocument(s.db, docPath, []byte(content)); err != nil {
		return nil, err
	}
	s.events.PublishDocumentEvent("updated", docPath)
	return s.detail(docPath)
}

// ListTasks returns a document's tasks with the per-phase summary.
func (s *Service) ListTasks(_ context.Context, req ListTasksRequest) (*TaskList, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return nil, err
	}
	list, err := s.engine.List(docPath)
	if err != nil {
		return nil, err
	}
	summary, err := s.engine.Summary(docPath)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []tasks.Task{}
	}
	return &TaskList{Tasks: list, Summary: summary}, nil
}

// NextTask returns the next actionable task. No actionable task fails with
// NO_ACTIONABLE_TASK so agent callers get a definite signal instead of null.
func (s *Service) NextTask(_ context.Context, req NextTaskRequest) (*tasks.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return nil, err
	}
	next, err := s.engine.NextAvailable(docPath, req.After)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, apperr.Newf(apperr.CodeNoActionableTask, "no actionable task in %s", docPath).
			With("document", docPath)
	}
	return next, nil
}

// CompleteTask marks a task completed. When the document auto-archives, the
// original path leaves the index and an archived event is published instead
// of updated.
func (s *Service) CompleteTask(_ context.Context, req CompleteTaskRequest) (*tasks.CompletionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Complete(docPath, req.Task, req.Note)
	if err != nil {
		return nil, err
	}

	if result.Archived {
		if err := s.db.DeleteDocument(docPath); err != nil {
			return nil, err
		}
		s.events.PublishDocumentEvent("archived", docPath)
		return result, nil
	}

	if err := s.reindex(docPath); err != nil {
		return nil, err
	}
	s.events.PublishDocumentEvent("updated", docPath)
	return result, nil
}

// ArchiveDocument retires a document into its namespace's retention area.
func (s *Service) ArchiveDocument(_ context.Context, req ArchiveDocumentRequest) (*archive.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	docPath, err := s.documentOnly(req.Document)
	if err != nil {
		return nil, err
	}
	rec, err := s.archives.Archive(docPath, req.WithAudit)
	if err != nil {
		return nil, err
	}
	if err := s.db.DeleteDocument(docPath); err != nil {
		return nil, err
	}
	s.events.PublishDocumentEvent("archived", docPath)
	return rec, nil
}

// ArchiveFolder retires every document under a directory prefix.
func (s *Service) ArchiveFolder(_ context.Context, req ArchiveFolderRequest) (*archive.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.archives.ArchiveFolder(req.Folder)
	if err != nil {
		return nil, err
	}
	// The moved files keep their content; drop the old index rows and let the
	// originals disappear from search until the next sync picks up the
	// retention copies.
	checksums, err := s.db.AllChecksums()
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(rec.OriginalPath, "/") + "/"
	for p := range checksums {
		if strings.HasPrefix(p, prefix) {
			if err := s.db.DeleteDocument(p); err != nil {
				return nil, err
			}
		}
	}
	s.events.PublishDocumentEvent("archived", rec.OriginalPath)
	return rec, nil
}

// Search runs a full-text query over the section index.
func (s *Service) Search(_ context.Context, req SearchRequest) ([]index.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	results, err := s.db.Search(req.Query, req.Limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return results, nil
}

// ListDocuments pages through indexed documents ordered by path.
func (s *Service) ListDocuments(_ context.Context, req ListDocumentsRequest) ([]DocumentListItem, int, error) {
	rows, total, err := s.db.ListDocuments(req.Limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]DocumentListItem, len(rows))
	for i, r := range rows {
		items[i] = DocumentListItem{
			Path:      r.Path,
			Title:     r.Title,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// documentOnly resolves raw and rejects addresses that carry a section
// fragment.
func (s *Service) documentOnly(raw string) (string, error) {
	a, err := s.resolver.Resolve(raw)
	if err != nil {
		return "", err
	}
	if a.Section != "" {
		return "", apperr.Newf(apperr.CodeInvalidPath, "path must not carry a section fragment: %s", raw).
			With("path", raw)
	}
	return a.DocumentPath, nil
}

// detail builds the full document view from the cache.
func (s *Service) detail(docPath string) (*DocumentDetail, error) {
	rec, err := s.cache.Get(docPath)
	if err != nil {
		return nil, err
	}
	return &DocumentDetail{
		Path:        rec.Path,
		Title:       rec.Title,
		Frontmatter: rec.Frontmatter,
		Headings:    rec.Headings,
		Content:     rec.Content,
		Checksum:    checksum.Sum([]byte(rec.Content)),
		UpdatedAt:   rec.LoadedMtime,
	}, nil
}

// reindex re-reads a document from disk and upserts it into the index.
func (s *Service) reindex(docPath string) error {
	data, err := s.store.Read(addr.Rel(docPath))
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "reindex read", err).With("document", docPath)
	}
	return index.IndexDocument(s.db, docPath, data)
}
