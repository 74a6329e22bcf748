// Package storage defines the document root file-system abstraction and the
// optimistic concurrency guard built on top of it.
package storage

import (
	"io/fs"

	"github.com/Blakeem/ai-prompt-guide-mcp/internal/models"
)

// Provider is the interface for document file operations. All paths are
// relative to the document root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns file info for path without reading its content.
	Stat(path string) (fs.FileInfo, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
