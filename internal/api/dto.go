package api

import (
	"github.com/starford/tonearm/internal/models"
	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/trackservice"
)

// SearchResponse is a page of tracks with facet counts (aliased from the search layer).
type SearchResponse = search.Response

// Track is a single track re-derived from disk (aliased from the domain layer).
type Track = models.Track

// StatusResponse reports index state (aliased from the service layer).
type StatusResponse = trackservice.Status

// ReindexResponse is returned after a reindex has been requested.
type ReindexResponse struct {
	Requested bool   `json:"requested" example:"true" validate:"required"`
	Message   string `json:"message" example:"index will be rebuilt on next start" validate:"required"`
}
