// Package tasks layers the task status state machine over the section store.
//
// Task records are not a separate store: any heading nested under a
// document's "Tasks" section is a task, and its status lives as a marker line
// inside the section body. The engine is a read/transform layer over section
// content, using the snapshot/conditional-write guard for mutation and
// invalidating the document cache after every successful write.
package tasks

import (
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/addr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/archive"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/doccache"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/sections"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/storage"
)

// tasksSlug is the leaf slug of the section that owns task records.
const tasksSlug = "tasks"

// Task is a derived view over one heading under the Tasks section.
type Task struct {
	Slug        string `json:"slug"`         // leaf slug, unique under the Tasks section
	SectionSlug string `json:"section_slug"` // full hierarchical heading slug
	Title       string `json:"title"`
	Status      Status `json:"status"`
	Phase       string `json:"phase,omitempty"`
	Note        string `json:"note,omitempty"`
	CompletedOn string `json:"completed_on,omitempty"` // YYYY-MM-DD
}

// CompletionResult is returned by Complete.
type CompletionResult struct {
	Completed   Task    `json:"completed_task"`
	Next        *Task   `json:"next_task,omitempty"`
	AllComplete bool    `json:"all_complete"`
	Archived    bool    `json:"archived"`
	ArchivePath string  `json:"archive_path,omitempty"`
}

// StatusCounts is a per-group status aggregation.
type StatusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// Engine exposes task operations over documents.
type Engine struct {
	cache    *doccache.Cache
	guard    *storage.Guard
	archives *archive.Manager
	resolver *addr.Resolver
	now      func() time.Time
}

// NewEngine creates an Engine. now may be nil for the wall clock.
func NewEngine(cache *doccache.Cache, guard *storage.Guard, archives *archive.Manager, resolver *addr.Resolver, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{cache: cache, guard: guard, archives: archives, resolver: resolver, now: now}
}

// List returns every task in the document, in document order. A document
// without a Tasks section has no tasks.
func (e *Engine) List(docPath string) ([]Task, error) {
	rec, err := e.cache.Get(docPath)
	if err != nil {
		return nil, err
	}
	doc := &sections.Document{Headings: rec.Headings}
	return collectTasks(doc, rec.Content), nil
}

// NextAvailable returns the first task in document order whose status is
// still actionable, optionally skipping everything up to and including
// afterSlug. It returns nil when no task is actionable; calling it twice
// without an intervening mutation returns the same task.
func (e *Engine) NextAvailable(docPath, afterSlug string) (*Task, error) {
	list, err := e.List(docPath)
	if err != nil {
		return nil, err
	}
	return nextActionable(list, afterSlug), nil
}

// AllComplete reports whether the document has no actionable work left: the
// Tasks section is absent, empty, or every task is completed.
func (e *Engine) AllComplete(docPath string) (bool, error) {
	list, err := e.List(docPath)
	if err != nil {
		return false, err
	}
	return allComplete(list), nil
}

// Summary folds task statuses by phase marker. Tasks without a phase are
// grouped under the empty key.
func (e *Engine) Summary(docPath string) (map[string]StatusCounts, error) {
	list, err := e.List(docPath)
	if err != nil {
		return nil, err
	}
	out := make(map[string]StatusCounts)
	for _, t := range list {
		c := out[t.Phase]
		c.Total++
		switch t.Status {
		case StatusPending:
			c.Pending++
		case StatusInProgress:
			c.InProgress++
		case StatusCompleted:
			c.Completed++
		}
		out[t.Phase] = c
	}
	return out, nil
}

// Complete marks the task as completed, records the completion date and the
// caller's note inside the section body, writes the document through the
// guard, invalidates the cache, and — when the namespace auto-archives and no
// actionable task remains — archives the document.
func (e *Engine) Complete(docPath, slug, note string) (*CompletionResult, error) {
	rel := addr.Rel(docPath)
	snap, err := e.guard.Snapshot(rel)
	if err != nil {
		return nil, err
	}

	content := string(snap.Content)
	doc := sections.Parse(content)
	h, ok := findTaskHeading(doc, slug)
	if !ok {
		return nil, apperr.Newf(apperr.CodeTaskNotFound, "task not found: %s", slug).
			With("document", docPath).
			With("task", slug)
	}

	body := doc.OwnBody(content, h)
	if body == "" {
		return nil, apperr.Newf(apperr.CodeTaskNotFound, "task has no content: %s", slug).
			With("document", docPath).
			With("task", slug)
	}

	date := e.now().Format("2006-01-02")
	newContent := sections.ReplaceOwnBody(content, doc, h, markCompleted(body, date, note))

	if err := e.guard.WriteIfUnchanged(rel, snap.Version, []byte(newContent)); err != nil {
		return nil, err
	}
	e.cache.Invalidate(docPath)

	// Derive the result from the written content, not the stale snapshot.
	after := sections.Parse(newContent)
	list := collectTasks(after, newContent)

	result := &CompletionResult{AllComplete: allComplete(list)}
	for _, t := range list {
		if t.SectionSlug == h.Slug {
			result.Completed = t
			break
		}
	}
	result.Next = nextActionable(list, "")

	if result.AllComplete {
		ns := e.resolver.NamespaceFor(docPath)
		if ns.AutoArchive {
			rec, err := e.archives.Archive(docPath, false)
			if err != nil {
				return nil, err
			}
			result.Archived = true
			result.ArchivePath = rec.ArchivePath
		}
	}
	return result, nil
}

// findTaskHeading locates a task by leaf or full slug under the Tasks section.
func findTaskHeading(doc *sections.Document, slug string) (sections.Heading, bool) {
	tasksSection, ok := findTasksSection(doc)
	if !ok {
		return sections.Heading{}, false
	}
	for _, h := range doc.Children(tasksSection) {
		if h.Slug == slug || leafOf(h.Slug) == slug {
			return h, true
		}
	}
	return sections.Heading{}, false
}

func findTasksSection(doc *sections.Document) (sections.Heading, bool) {
	for _, h := range doc.Headings {
		if leafOf(h.Slug) == tasksSlug {
			return h, true
		}
	}
	return sections.Heading{}, false
}

// collectTasks builds Task views for every heading under the Tasks section.
func collectTasks(doc *sections.Document, content string) []Task {
	tasksSection, ok := findTasksSection(doc)
	if !ok {
		return nil
	}
	var out []Task
	for _, h := range doc.Children(tasksSection) {
		markers := bodyMarkers(doc.OwnBody(content, h))
		out = append(out, Task{
			Slug:        leafOf(h.Slug),
			SectionSlug: h.Slug,
			Title:       h.Title,
			Status:      ParseStatus(markers[markerStatus]),
			Phase:       markers[markerPhase],
			Note:        markers[markerNote],
			CompletedOn: markers[markerCompleted],
		})
	}
	return out
}

func nextActionable(list []Task, afterSlug string) *Task {
	skipping := afterSlug != ""
	for i := range list {
		t := list[i]
		if skipping {
			if t.Slug == afterSlug || t.SectionSlug == afterSlug {
				skipping = false
			}
			continue
		}
		if t.Status.Actionable() {
			return &t
		}
	}
	return nil
}

func allComplete(list []Task) bool {
	for _, t := range list {
		if t.Status != StatusCompleted {
			return false
		}
	}
	return true
}

func leafOf(slug string) string {
	for i := len(slug) - 1; i >= 0; i-- {
		if slug[i] == '/' {
			return slug[i+1:]
		}
	}
	return slug
}
