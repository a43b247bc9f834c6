// Package storage defines the read-only music library file-system abstraction.
package storage

import "github.com/starford/tonearm/internal/models"

// Provider is the interface for library file access.
type Provider interface {
	// Root returns the absolute library root.
	Root() string
	// List returns every regular file under dir (relative to the root).
	List(dir string) ([]models.FileInfo, error)
	// Resolve maps a root-relative path to an absolute one, rejecting
	// paths that escape the root.
	Resolve(path string) (string, error)
}
