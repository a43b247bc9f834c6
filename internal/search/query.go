package search

import (
	"log/slog"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/starford/tonearm/internal/index"
)

// BuildQuery turns a request into a bleve query. The text clause is
// required; each valid facet is a should clause and at least one of them
// must match.
func BuildQuery(req Request, logger *slog.Logger) query.Query {
	must := []query.Query{textQuery(req.Text, logger)}
	must = append(must, filterQueries(req.Filters)...)
	facets := ValidFacets(req.Facets, logger)

	if len(must) == 1 && len(facets) == 0 {
		return must[0]
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	for _, f := range facets {
		tq := bleve.NewTermQuery(f)
		tq.SetField(index.FieldFacets)
		bq.AddShould(tq)
	}
	if len(facets) > 0 {
		bq.SetMinShould(1)
	}
	return bq
}

// textQuery parses text with the query-string syntax and falls back to a
// literal phrase when it does not parse.
func textQuery(text string, logger *slog.Logger) query.Query {
	text = strings.TrimSpace(text)
	if text == "" {
		return bleve.NewMatchAllQuery()
	}
	qs := bleve.NewQueryStringQuery(text)
	if _, err := qs.Parse(); err != nil {
		logger.Debug("search: query parse failed, using literal phrase",
			slog.String("query", text),
			slog.String("error", err.Error()))
		return literalPhrase(text)
	}
	return qs
}

func literalPhrase(text string) query.Query {
	phrase := strings.TrimSpace(strings.ReplaceAll(text, `"`, ""))
	if phrase == "" {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewMatchPhraseQuery(phrase)
}

func filterQueries(f Filters) []query.Query {
	if f.empty() {
		return nil
	}
	inclusive := true
	var out []query.Query

	if f.YearFrom != nil || f.YearTo != nil {
		var lo, hi *float64
		if f.YearFrom != nil {
			v := float64(*f.YearFrom)
			lo = &v
		}
		if f.YearTo != nil {
			v := float64(*f.YearTo)
			hi = &v
		}
		q := bleve.NewNumericRangeInclusiveQuery(lo, hi, &inclusive, &inclusive)
		q.SetField(index.FieldYear)
		out = append(out, q)
	}

	if f.CreatedFrom != nil || f.CreatedTo != nil {
		var start, end time.Time
		if f.CreatedFrom != nil {
			start = f.CreatedFrom.UTC()
		}
		if f.CreatedTo != nil {
			end = f.CreatedTo.UTC()
		}
		q := bleve.NewDateRangeInclusiveQuery(start, end, &inclusive, &inclusive)
		q.SetField(index.FieldCreated)
		out = append(out, q)
	}
	return out
}

// ValidFacets returns the distinct valid facet paths of facets in request
// order. Invalid ones are dropped with a warning.
func ValidFacets(facets []string, logger *slog.Logger) []string {
	seen := make(map[string]struct{}, len(facets))
	out := make([]string, 0, len(facets))
	for _, f := range facets {
		if err := index.ValidateFacet(f); err != nil {
			logger.Warn("search: dropping invalid facet", slog.String("facet", f), slog.String("error", err.Error()))
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
