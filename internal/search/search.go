// Package search builds queries against the track index and assembles
// paginated, faceted responses.
package search

import (
	"context"
	"log/slog"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"

	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/models"
)

// Index is the read side of the track index.
type Index interface {
	Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error)
}

// Resolver re-derives a Track from the file at path.
type Resolver interface {
	Extract(path string) (*models.Track, error)
}

// Searcher answers search requests.
type Searcher struct {
	idx      Index
	resolver Resolver
	logger   *slog.Logger
}

// New creates a Searcher.
func New(idx Index, resolver Resolver, logger *slog.Logger) *Searcher {
	return &Searcher{idx: idx, resolver: resolver, logger: logger}
}

// Search runs req. It only fails when the index itself fails.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	req = req.normalized()
	q := BuildQuery(req, s.logger)

	// Pages past MaxWindow come back empty.
	size, from := 0, 0
	if !req.FacetsOnly && !req.beyondWindow() {
		size = req.PageSize + 1
		from = req.Page * req.PageSize
	}

	sr := bleve.NewSearchRequestOptions(q, size, from, false)
	sr.Fields = index.StoredFields

	sortKey, byField := orderField(req.Order)
	if byField {
		sr.SortBy([]string{sortKey, "_id"})
	} else {
		if req.Order != nil {
			s.logger.Debug("search: unknown order field, using relevance", slog.String("field", req.Order.Field))
		}
		sr.SortBy([]string{"-_score", "_id"})
	}

	roots := s.facetRoots(req.Facets)
	for _, root := range roots {
		field, _ := index.FacetField(root)
		sr.AddFacet(root, bleve.NewFacetRequest(field, TopK))
	}

	res, err := s.idx.Search(ctx, sr)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Results:   []Result{},
		Facets:    Aggregate(facetCounts(res.Facets), roots, TopK),
		Page:      req.Page,
		PageSize:  req.PageSize,
		Query:     req.Text,
		Relevance: !byField,
	}

	hits := res.Hits
	if len(hits) > req.PageSize {
		resp.HasNextPage = true
		hits = hits[:req.PageSize]
	}
	for i, hit := range hits {
		score := Score{Booster: from + i}
		if !byField {
			score.Relevance = hit.Score
		}
		resp.Results = append(resp.Results, Result{Score: score, Track: s.resolve(hit)})
	}
	resp.Total = len(resp.Results)
	return resp, nil
}

// facetRoots keeps the requested facets that name an aggregatable root.
func (s *Searcher) facetRoots(facets []string) []string {
	var roots []string
	for _, f := range ValidFacets(facets, s.logger) {
		if _, ok := index.FacetField(f); ok {
			roots = append(roots, f)
		}
	}
	return roots
}

// resolve reads a hit's file back from disk. Files that are gone or no
// longer readable become the missing-track sentinel.
func (s *Searcher) resolve(hit *bsearch.DocumentMatch) models.Track {
	path, _ := hit.Fields[index.FieldPath].(string)
	if path == "" {
		path = hit.ID
	}
	t, err := s.resolver.Extract(path)
	if err != nil {
		s.logger.Debug("search: track unavailable", slog.String("path", path), slog.String("error", err.Error()))
		return models.Missing()
	}
	if id, ok := hit.Fields[index.FieldID].(string); ok && id != "" {
		t.ID = id
	}
	if ms, ok := index.StoredTime(hit.Fields[index.FieldIndexed]); ok {
		t.IndexedAt = ms
	}
	return *t
}
