// Package archive relocates documents into the retention area.
//
// Archiving a single document is copy, optional audit sidecar, delete,
// invalidate — deliberately not atomic: a crash between copy and delete
// leaves a duplicate, never a loss. Folder archiving (retiring a whole
// active task list) renames files in place, since source and retention
// share the document root volume.
package archive

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/addr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/apperr"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/doccache"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/storage"
)

// Record describes one completed archive operation. It is returned to the
// caller and not persisted anywhere else (apart from the optional sidecar).
type Record struct {
	OriginalPath string    `json:"original_path"`
	ArchivePath  string    `json:"archive_path"`
	ArchivedAt   time.Time `json:"archived_at"`
	WasFolder    bool      `json:"was_folder"`
	AuditPath    string    `json:"audit_path,omitempty"`
}

// Manager performs archive operations.
type Manager struct {
	store    storage.Provider
	cache    *doccache.Cache
	resolver *addr.Resolver
	now      func() time.Time
}

// NewManager creates a Manager. now may be nil for the wall clock.
func NewManager(store storage.Provider, cache *doccache.Cache, resolver *addr.Resolver, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, cache: cache, resolver: resolver, now: now}
}

// Archive relocates the document at docPath (canonical) into the retention
// directory for its namespace and invalidates the cache entry for the
// original path. withAudit additionally writes an <archivePath>.audit sidecar.
func (m *Manager) Archive(docPath string, withAudit bool) (*Record, error) {
	data, err := m.store.Read(addr.Rel(docPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Newf(apperr.CodeDocumentNotFound, "document not found: %s", docPath).
				With("document", docPath)
		}
		return nil, apperr.Wrap(apperr.CodeArchiveIO, "read source", err).With("document", docPath)
	}

	ns := m.resolver.NamespaceFor(docPath)
	archivedAt := m.now().UTC().Truncate(time.Second)
	archivePath := m.freeName(m.retentionDir(ns, docPath), archiveBase(ns), archivedAt)

	if err := m.store.Write(addr.Rel(archivePath), data); err != nil {
		return nil, apperr.Wrap(apperr.CodeArchiveIO, "copy to retention", err).
			With("document", docPath).
			With("archive_path", archivePath)
	}

	rec := &Record{
		OriginalPath: docPath,
		ArchivePath:  archivePath,
		ArchivedAt:   archivedAt,
	}

	if withAudit {
		rec.AuditPath = archivePath + ".audit"
		sidecar, _ := json.MarshalIndent(rec, "", "  ")
		if err := m.store.Write(addr.Rel(rec.AuditPath), append(sidecar, '\n')); err != nil {
			return nil, apperr.Wrap(apperr.CodeArchiveIO, "write audit sidecar", err).
				With("document", docPath).
				With("audit_path", rec.AuditPath)
		}
	}

	// A failure here leaves a duplicate rather than losing data.
	if err := m.store.Delete(addr.Rel(docPath)); err != nil {
		return nil, apperr.Wrap(apperr.CodeArchiveIO, "delete source after copy", err).
			With("document", docPath).
			With("archive_path", archivePath)
	}

	m.cache.Invalidate(docPath)
	return rec, nil
}

// ArchiveFolder relocates every document under dirPath (canonical directory
// prefix, e.g. "/coordinator/") into a stamped retention folder, preserving
// relative names. Used by coordinator workflows to retire the whole active
// task list at once.
func (m *Manager) ArchiveFolder(dirPath string) (*Record, error) {
	dirPath = strings.TrimSuffix(dirPath, "/") + "/"
	metas, err := m.store.List(addr.Rel(dirPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.Newf(apperr.CodeDocumentNotFound, "no documents under %s", dirPath).
				With("folder", dirPath)
		}
		return nil, apperr.Wrap(apperr.CodeArchiveIO, "list folder", err).With("folder", dirPath)
	}
	if len(metas) == 0 {
		return nil, apperr.Newf(apperr.CodeDocumentNotFound, "no documents under %s", dirPath).
			With("folder", dirPath)
	}

	ns := m.resolver.NamespaceFor(dirPath)
	archivedAt := m.now().UTC().Truncate(time.Second)
	destDir := path.Join(m.retentionDir(ns, dirPath+"x.md"), archiveBase(ns)+stamp(archivedAt)) + "/"

	for _, meta := range metas {
		orig := "/" + meta.Path
		dest := destDir + strings.TrimPrefix(orig, dirPath)
		if err := m.store.Move(meta.Path, addr.Rel(dest)); err != nil {
			return nil, apperr.Wrap(apperr.CodeArchiveIO, "move into retention", err).
				With("document", orig).
				With("archive_path", dest)
		}
		m.cache.Invalidate(orig)
	}

	return &Record{
		OriginalPath: dirPath,
		ArchivePath:  destDir,
		ArchivedAt:   archivedAt,
		WasFolder:    true,
	}, nil
}

// retentionDir returns the retention directory for a document: the namespace
// override when configured, otherwise the source directory mirrored under
// /archived.
func (m *Manager) retentionDir(ns addr.Namespace, docPath string) string {
	if ns.ArchivePrefix != "" {
		return strings.TrimSuffix(ns.ArchivePrefix, "/")
	}
	return "/archived" + path.Dir(docPath)
}

// freeName picks a collision-free archive file name: the timestamp, plus a
// numeric suffix in the unlikely case two archives land in the same second.
func (m *Manager) freeName(dir, base string, t time.Time) string {
	name := path.Join(dir, base+stamp(t)+".md")
	for i := 2; ; i++ {
		if _, err := m.store.Stat(addr.Rel(name)); errors.Is(err, os.ErrNotExist) {
			return name
		}
		name = path.Join(dir, base+stamp(t)+"-"+strconv.Itoa(i)+".md")
	}
}

// stamp renders an ISO-8601 UTC timestamp at second precision with ':' and
// '.' replaced so the result is filesystem-safe.
func stamp(t time.Time) string {
	s := t.UTC().Format("2006-01-02T15:04:05Z")
	s = strings.ReplaceAll(s, ":", "-")
	return strings.ReplaceAll(s, ".", "-")
}

func archiveBase(ns addr.Namespace) string {
	if ns.ArchiveBase != "" {
		return ns.ArchiveBase
	}
	return "doc-"
}
