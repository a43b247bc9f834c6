package search

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/search"

	"github.com/starford/tonearm/internal/extract"
)

// Aggregate picks, for each root, its k most frequent direct children.
// Ties are ordered by path. Roots without children are omitted.
func Aggregate(counts map[string]int, roots []string, k int) map[string][]FacetCount {
	out := make(map[string][]FacetCount, len(roots))
	for _, root := range roots {
		var children []FacetCount
		for path, n := range counts {
			if n > 0 && isChild(root, path) {
				children = append(children, FacetCount{Path: path, Count: n, Label: label(root, path)})
			}
		}
		if len(children) == 0 {
			continue
		}
		sort.Slice(children, func(i, j int) bool {
			if children[i].Count != children[j].Count {
				return children[i].Count > children[j].Count
			}
			return children[i].Path < children[j].Path
		})
		if len(children) > k {
			children = children[:k]
		}
		out[root] = children
	}
	return out
}

// label maps a genre index to its name.
func label(root, path string) string {
	if root != "/genre" {
		return ""
	}
	seg := strings.TrimPrefix(path, root+"/")
	if name := extract.GenreName(seg); name != seg {
		return name
	}
	return ""
}

// isChild reports whether path sits exactly one segment below root.
func isChild(root, path string) bool {
	rest, ok := strings.CutPrefix(path, root+"/")
	if !ok || rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			i++
		case '/':
			return false
		}
	}
	return true
}

// facetCounts flattens bleve term facets into path -> count.
func facetCounts(results search.FacetResults) map[string]int {
	counts := make(map[string]int)
	for _, fr := range results {
		if fr == nil || fr.Terms == nil {
			continue
		}
		for _, tf := range fr.Terms.Terms() {
			counts[tf.Term] += tf.Count
		}
	}
	return counts
}
