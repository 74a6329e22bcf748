package storage

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
)

// Snapshot is a point-in-time read of a document: its content plus the
// version token a later conditional write is checked against.
type Snapshot struct {
	Content []byte
	Version time.Time // file mtime at read time
}

// Guard provides snapshot-read-then-conditional-write over a Provider.
//
// The backing files are outside this process's exclusive control (editors and
// other processes may touch them), so mtime comparison at write time is the
// isolation mechanism. On a version mismatch the write fails with CONFLICT
// and nothing is modified; the guard never re-reads silently — retrying is
// the caller's decision.
//
// The per-path mutex only makes the guard's own check-and-write atomic within
// the process; it does not serialize whole operations.
type Guard struct {
	store Provider

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGuard creates a Guard over store.
func NewGuard(store Provider) *Guard {
	return &Guard{store: store, locks: make(map[string]*sync.Mutex)}
}

// Snapshot reads content and version for path. A missing file is reported as
// DOCUMENT_NOT_FOUND.
func (g *Guard) Snapshot(path string) (Snapshot, error) {
	info, err := g.store.Stat(path)
	if err != nil {
		return Snapshot{}, notFoundOr(err, path)
	}
	content, err := g.store.Read(path)
	if err != nil {
		return Snapshot{}, notFoundOr(err, path)
	}
	return Snapshot{Content: content, Version: info.ModTime()}, nil
}

// WriteIfUnchanged writes newContent to path only if the file's version token
// still equals version. A stale token fails with CONFLICT without modifying
// the file.
func (g *Guard) WriteIfUnchanged(path string, version time.Time, newContent []byte) error {
	lock := g.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	info, err := g.store.Stat(path)
	if err != nil {
		return notFoundOr(err, path)
	}
	if !info.ModTime().Equal(version) {
		return apperr.Newf(apperr.CodeConflict, "document changed since snapshot: %s", path).
			With("document", path).
			With("expected_version", version.UTC().Format(time.RFC3339Nano)).
			With("actual_version", info.ModTime().UTC().Format(time.RFC3339Nano))
	}
	if err := g.store.Write(path, newContent); err != nil {
		return err
	}
	return nil
}

func (g *Guard) pathLock(path string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.locks[path]; ok {
		return l
	}
	l := &sync.Mutex{}
	g.locks[path] = l
	return l
}

func notFoundOr(err error, path string) error {
	if errors.Is(err, os.ErrNotExist) {
		return apperr.Newf(apperr.CodeDocumentNotFound, "document not found: %s", path).
			With("document", path)
	}
	return err
}
