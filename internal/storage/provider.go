// Package storage defines the search-root file-system abstraction.
package storage

import "github.com/starford/tagtracker/internal/models"

// SkipFunc is called for every directory or file the walk could not visit.
type SkipFunc func(path string, err error)

// Provider is the interface for search-root file operations.
type Provider interface {
	// Root returns the absolute search root.
	Root() string
	// List returns every markdown document under the root in discovery order.
	List(onSkip SkipFunc) ([]models.Document, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path (relative to root).
	Write(path string, content []byte) error
	// IsFile reports whether path (relative to root) is an existing regular file.
	IsFile(path string) bool
	// Find returns the root-relative path of the first file whose path ends
	// with subpath, skipping version-control directories.
	Find(subpath string) (string, error)
}
