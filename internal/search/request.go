package search

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tonearm/internal/index"
	"github.com/starford/tonearm/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
	// MaxWindow is the deepest offset a page may start at.
	MaxWindow = 100_000
	// TopK is how many children are reported per facet root.
	TopK = 50
)

// Direction of a field ordering.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order asks for results ordered by a stored date field.
type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction,omitempty"`
}

// Filters restrict the result set. Nil bounds are open.
type Filters struct {
	YearFrom    *uint32    `json:"year_from,omitempty"`
	YearTo      *uint32    `json:"year_to,omitempty"`
	CreatedFrom *time.Time `json:"created_from,omitempty"`
	CreatedTo   *time.Time `json:"created_to,omitempty"`
}

func (f Filters) empty() bool {
	return f.YearFrom == nil && f.YearTo == nil && f.CreatedFrom == nil && f.CreatedTo == nil
}

// Request is a search over the track index.
type Request struct {
	Text       string   `json:"text"`
	Filters    Filters  `json:"filters"`
	Order      *Order   `json:"order,omitempty"`
	Facets     []string `json:"facets,omitempty"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	FacetsOnly bool     `json:"facets_only,omitempty"`
}

// Validate rejects requests a client should fix. Search itself never
// fails on user input; it normalizes instead.
func (r Request) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(0)),
		validation.Field(&r.PageSize, validation.Min(0), validation.Max(MaxPageSize)),
	)
	if err != nil {
		return err
	}
	if r.normalized().beyondWindow() {
		return validation.Errors{"page": fmt.Errorf("must not start past result %d", MaxWindow)}
	}
	if r.Order != nil {
		return validation.ValidateStruct(r.Order,
			validation.Field(&r.Order.Field, validation.Required),
			validation.Field(&r.Order.Direction, validation.In(Asc, Desc)),
		)
	}
	return nil
}

func (r Request) normalized() Request {
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
	if r.Page < 0 {
		r.Page = 0
	}
	return r
}

// beyondWindow reports whether a normalized request starts past MaxWindow.
func (r Request) beyondWindow() bool {
	return r.Page > MaxWindow/r.PageSize
}

// Score pairs a relevance score with the rank based tie-break.
type Score struct {
	Relevance float64 `json:"bm25"`
	Booster   int     `json:"booster"`
}

// Result is one hit.
type Result struct {
	Score Score        `json:"score"`
	Track models.Track `json:"track"`
}

// FacetCount is the number of hits under one facet path.
type FacetCount struct {
	Path  string `json:"tag"`
	Count int    `json:"total"`
	// Label is set for genre indices that have a display name.
	Label string `json:"label,omitempty"`
}

// Response is a page of results plus facet counts.
type Response struct {
	Total       int                     `json:"total"`
	Results     []Result                `json:"results"`
	Facets      map[string][]FacetCount `json:"facets"`
	Page        int                     `json:"page"`
	PageSize    int                     `json:"page_size"`
	Query       string                  `json:"query"`
	HasNextPage bool                    `json:"has_next_page"`
	Relevance   bool                    `json:"relevance"`
}

var orderFields = map[string]string{
	"created":       index.FieldCreated,
	"created_at":    index.FieldCreated,
	"created_date":  index.FieldCreated,
	"modified":      index.FieldModified,
	"modified_at":   index.FieldModified,
	"modified_date": index.FieldModified,
	"indexed":       index.FieldIndexed,
	"indexed_at":    index.FieldIndexed,
	"indexed_date":  index.FieldIndexed,
}

// orderField resolves the requested ordering to a sort key such as
// "-created_at". ok is false when relevance ordering applies.
func orderField(o *Order) (string, bool) {
	if o == nil {
		return "", false
	}
	field, ok := orderFields[strings.ToLower(strings.TrimSpace(o.Field))]
	if !ok {
		return "", false
	}
	if o.Direction == Asc {
		return field, true
	}
	return "-" + field, true
}
