// Package storage defines the catalog file-system abstraction.
package storage

import "github.com/starford/nomencurator/internal/models"

// Ext is the extension of catalog files.
const Ext = ".xml"

// Provider is the interface for catalog file operations.
type Provider interface {
	// List returns metadata for every catalog file under dir (relative to the catalog root).
	List(dir string) ([]models.SourceMetadata, error)
	// Read returns the raw bytes of the file at path (relative to the catalog root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the catalog root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the catalog root).
	Delete(path string) error
	// Root returns the absolute catalog directory.
	Root() string
}
