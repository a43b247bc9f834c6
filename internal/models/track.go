// Package models defines the domain types for tonearm.
package models

// Track is the canonical record for one audio file.
// Timestamps are epoch milliseconds.
type Track struct {
	ID           string   `json:"id"`
	AbsolutePath string   `json:"absolute_path"`
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Artist       string   `json:"artist"`
	Album        string   `json:"album"`
	Genres       []string `json:"genres"`
	Year         uint32   `json:"year"`
	Size         int64    `json:"size"`
	Duration     float64  `json:"duration"`
	CreatedAt    int64    `json:"created_at"`
	ModifiedAt   int64    `json:"modified_at"`
	IndexedAt    int64    `json:"indexed_at"`
	Exists       bool     `json:"exists"`
}

// Missing returns the sentinel for a track whose file is gone.
func Missing() Track {
	return Track{Genres: []string{}, Exists: false}
}

// FileInfo is a lightweight entry returned by library listings.
type FileInfo struct {
	Path    string `json:"path"` // relative to the library root
	AbsPath string `json:"abs_path"`
	Size    int64  `json:"size"`
}
