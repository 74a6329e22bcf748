package index

import (
	"log/slog"
	"time"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/checksum"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/sections"
	"github.com/Blakeem/ai-prompt-guide-mcp/internal/storage"
)

// Sync walks the document root and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		canonical := "/" + m.Path
		disk[canonical] = struct{}{}

		if checksums[canonical] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", canonical), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, canonical, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", canonical), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", canonical))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument parses data and upserts it at the canonical path. Exported so
// the watcher and the service layer reuse it.
func IndexDocument(db *DB, canonicalPath string, data []byte) error {
	content := string(data)
	doc := sections.Parse(content)

	secs := make([]SectionRow, 0, len(doc.Headings))
	for _, h := range doc.Headings {
		secs = append(secs, SectionRow{
			Slug:  h.Slug,
			Title: h.Title,
			Depth: h.Depth,
			Body:  doc.OwnBody(content, h),
		})
	}

	return db.UpsertDocument(DocumentRow{
		Path:      canonicalPath,
		Title:     doc.Title,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}, secs)
}
