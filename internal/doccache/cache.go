// Package doccache memoizes parsed document structure per canonical path.
//
// A record is created on first access, served unchanged on repeat gets, and
// refreshed lazily on the first get after an invalidation. Every component
// that mutates a backing file must invalidate the record for every path it
// touched before reporting success; that exactly-once discipline is the
// central invariant of the layer. There is no TTL and no size bound — the map
// is bounded by the number of distinct documents touched in process lifetime,
// and nothing survives a restart.
package doccache

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/addr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/sections"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/storage"
)

// Record is one cached document: raw content plus its parsed heading tree.
// Records are never mutated after insertion; a refresh replaces the entry.
type Record struct {
	Path        string             // canonical slash-rooted path
	Title       string
	Frontmatter map[string]any
	Headings    []sections.Heading
	Content     string
	LoadedMtime time.Time // backing file mtime at load
}

// Cache is the keyed document cache. Construct one per process and inject it;
// tests build isolated instances over temp roots.
type Cache struct {
	store storage.Provider

	mu      sync.RWMutex
	entries map[string]*Record
}

// New creates an empty Cache over store.
func New(store storage.Provider) *Cache {
	return &Cache{store: store, entries: make(map[string]*Record)}
}

// Get returns the record for the canonical path, loading and parsing the
// backing file on a miss. A path without a backing file fails with
// DOCUMENT_NOT_FOUND.
func (c *Cache) Get(path string) (*Record, error) {
	c.mu.RLock()
	rec, ok := c.entries[path]
	c.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := c.load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// Another goroutine may have loaded the same path meanwhile; keep the
	// first inserted record so repeat gets stay stable.
	if existing, ok := c.entries[path]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.entries[path] = rec
	c.mu.Unlock()
	return rec, nil
}

// Invalidate drops the record for path. The next Get re-parses from disk.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Contains reports whether path currently has a cached record.
func (c *Cache) Contains(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[path]
	return ok
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) load(path string) (*Record, error) {
	rel := addr.Rel(path)
	info, err := c.store.Stat(rel)
	if err != nil {
		return nil, notFoundOr(err, path)
	}
	data, err := c.store.Read(rel)
	if err != nil {
		return nil, notFoundOr(err, path)
	}

	content := string(data)
	doc := sections.Parse(content)
	return &Record{
		Path:        path,
		Title:       doc.Title,
		Frontmatter: doc.Frontmatter,
		Headings:    doc.Headings,
		Content:     content,
		LoadedMtime: info.ModTime(),
	}, nil
}

func notFoundOr(err error, path string) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.Newf(apperr.CodeDocumentNotFound, "document not found: %s", path).
			With("document", path)
	}
	return err
}
