package index

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/starford/tonearm/internal/models"
)

// Stored and indexed field names.
const (
	FieldID       = "id"
	FieldPath     = "abs_path"
	FieldPathText = "abs_path_text"
	FieldName     = "name"
	FieldTitle    = "title"
	FieldArtist   = "artist"
	FieldAlbum    = "album"
	FieldGenres   = "genres"
	FieldYear     = "year"
	FieldSize     = "size"
	FieldDuration = "duration"
	FieldCreated  = "created_at"
	FieldModified = "modified_at"
	FieldIndexed  = "indexed_at"
	FieldFacets   = "facets"
)

// Facet roots.
const (
	FacetAlbum  = "/album"
	FacetArtist = "/artist"
	FacetYear   = "/year"
	FacetGenre  = "/genre"
)

// FacetRoots lists every root a Track contributes paths to.
var FacetRoots = []string{FacetAlbum, FacetArtist, FacetYear, FacetGenre}

// StoredFields are returned with every hit.
var StoredFields = []string{FieldID, FieldPath, FieldIndexed, FieldModified}

// FacetField returns the per-root keyword field that holds the root's
// children, e.g. "/year" -> "facet_year".
func FacetField(root string) (string, bool) {
	for _, r := range FacetRoots {
		if r == root {
			return "facet_" + strings.TrimPrefix(r, "/"), true
		}
	}
	return "", false
}

// EscapeSegment escapes the delimiter inside a facet segment.
func EscapeSegment(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "/", `\/`)
}

// ValidateFacet checks that p is an absolute facet path whose segments are
// non-empty, free of control characters and properly escaped.
func ValidateFacet(p string) error {
	if len(p) < 2 || p[0] != '/' {
		return fmt.Errorf("facet %q: must start with '/' and name a segment", p)
	}
	segLen := 0
	for i := 1; i < len(p); i++ {
		c := p[i]
		switch {
		case c < 0x20 || c == 0x7f:
			return fmt.Errorf("facet %q: control character at %d", p, i)
		case c == '\\':
			if i+1 >= len(p) || (p[i+1] != '/' && p[i+1] != '\\') {
				return fmt.Errorf("facet %q: dangling escape at %d", p, i)
			}
			i++
			segLen++
		case c == '/':
			if segLen == 0 {
				return fmt.Errorf("facet %q: empty segment at %d", p, i)
			}
			segLen = 0
		default:
			segLen++
		}
	}
	if segLen == 0 {
		return fmt.Errorf("facet %q: trailing delimiter", p)
	}
	return nil
}

// FacetPaths synthesizes the facet paths of t grouped by root. Values that
// produce an invalid path are logged and skipped.
func FacetPaths(t models.Track, logger *slog.Logger) map[string][]string {
	values := map[string][]string{
		FacetAlbum:  {t.Album},
		FacetArtist: {t.Artist},
		FacetYear:   {strconv.FormatUint(uint64(t.Year), 10)},
		FacetGenre:  t.Genres,
	}
	out := make(map[string][]string, len(values))
	for root, vals := range values {
		for _, v := range vals {
			p := root + "/" + EscapeSegment(v)
			if err := ValidateFacet(p); err != nil {
				logger.Warn("schema: invalid facet rejected",
					slog.String("path", t.AbsolutePath),
					slog.String("error", err.Error()))
				continue
			}
			out[root] = append(out[root], p)
		}
	}
	return out
}

// document maps t onto the index field layout.
func document(t models.Track, logger *slog.Logger) map[string]any {
	doc := map[string]any{
		FieldID:       t.ID,
		FieldPath:     t.AbsolutePath,
		FieldName:     t.Name,
		FieldTitle:    t.Title,
		FieldArtist:   t.Artist,
		FieldAlbum:    t.Album,
		FieldGenres:   t.Genres,
		FieldYear:     float64(t.Year),
		FieldSize:     float64(t.Size),
		FieldDuration: t.Duration,
		FieldCreated:  time.UnixMilli(t.CreatedAt).UTC(),
		FieldModified: time.UnixMilli(t.ModifiedAt).UTC(),
		FieldIndexed:  time.UnixMilli(t.IndexedAt).UTC(),
	}

	// facets also carries each root so a root selection matches any child.
	var all []string
	for root, paths := range FacetPaths(t, logger) {
		field, _ := FacetField(root)
		doc[field] = paths
		all = append(all, root)
		all = append(all, paths...)
	}
	doc[FieldFacets] = all
	return doc
}
