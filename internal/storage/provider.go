// Package storage defines the file-system abstraction over a local clone.
package storage

import "github.com/starford/cookbook/internal/models"

// Provider is the interface for file operations relative to the clone root.
type Provider interface {
	// Root returns the absolute path of the clone root.
	Root() string
	// List returns the files directly inside dir whose names end with ext.
	List(dir, ext string) ([]models.FileInfo, error)
	// Stat returns size and modification time of the file at path.
	Stat(path string) (models.FileInfo, error)
	// Exists reports whether path exists (file or directory).
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}
