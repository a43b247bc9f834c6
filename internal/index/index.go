package index

import (
	"context"

	"github.com/blevesearch/bleve/v2"

	"github.com/starford/tonearm/internal/models"
)

// TrackIndex defines the operations the pipeline and the search path need.
// Consumers should depend on this interface rather than the concrete *Index.
type TrackIndex interface {
	Add(t models.Track) (bool, error)
	Replace(t models.Track) error
	Commit() (int, error)
	Exists(path string) (bool, error)
	StoredModifiedAt(path string) (int64, bool, error)
	Count() (uint64, error)
	Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)
	Close() error
}

// Verify *Index satisfies TrackIndex at compile time.
var _ TrackIndex = (*Index)(nil)
