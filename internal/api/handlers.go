package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tonearm/internal/search"
	"github.com/starford/tonearm/internal/trackservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *trackservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *trackservice.Service) *Handler {
	return &Handler{svc: svc}
}

// trackPath extracts the library-relative path from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. albums%2Fsong.mp3).
func trackPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Search handles GET /api/search.
//
//	@Summary		Search tracks with facets and date ordering
//	@Tags			search
//	@Produce		json
//	@Param			q				query		string		false	"Query string; empty matches all"
//	@Param			facet			query		[]string	false	"Facet path, repeatable (e.g. /genre/17)"
//	@Param			order			query		string		false	"Date field"	Enums(created_at, modified_at, indexed_at)
//	@Param			dir				query		string		false	"Direction"		Enums(asc, desc)
//	@Param			page			query		int			false	"Zero-based page"
//	@Param			size			query		int			false	"Page size"
//	@Param			year_from		query		int			false	"Lowest year"
//	@Param			year_to			query		int			false	"Highest year"
//	@Param			created_from	query		string		false	"RFC 3339 time or YYYY-MM-DD"
//	@Param			created_to		query		string		false	"RFC 3339 time or YYYY-MM-DD"
//	@Param			facets_only		query		bool		false	"Return facet counts only"
//	@Success		200				{object}	SearchResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	resp, err := h.svc.Search(r.Context(), req)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTrack handles GET /api/tracks/*.
//
//	@Summary		Read a track's metadata from disk
//	@Tags			tracks
//	@Produce		json
//	@Param			path	path		string	true	"Library-relative path"
//	@Success		200		{object}	Track
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tracks/{path} [get]
func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	path := trackPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	t, err := h.svc.GetTrack(r.Context(), path)
	if err != nil {
		writeError(w, "get track", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Status handles GET /api/status.
//
//	@Summary		Index and crawl status
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Reindex handles POST /api/reindex.
//
//	@Summary		Rebuild the index on next start
//	@Tags			index
//	@Produce		json
//	@Success		202	{object}	ReindexResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RequestReindex(r.Context()); err != nil {
		writeError(w, "reindex", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ReindexResponse{
		Requested: true,
		Message:   "index will be rebuilt on next start",
	})
}

func parseSearchRequest(q url.Values) (search.Request, error) {
	req := search.Request{
		Text:   q.Get("q"),
		Facets: q["facet"],
	}
	var err error
	if req.Page, err = intParam(q, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = intParam(q, "size"); err != nil {
		return req, err
	}
	if req.Filters.YearFrom, err = yearParam(q, "year_from"); err != nil {
		return req, err
	}
	if req.Filters.YearTo, err = yearParam(q, "year_to"); err != nil {
		return req, err
	}
	if req.Filters.CreatedFrom, err = timeParam(q, "created_from"); err != nil {
		return req, err
	}
	if req.Filters.CreatedTo, err = timeParam(q, "created_to"); err != nil {
		return req, err
	}
	if v := q.Get("facets_only"); v != "" {
		if req.FacetsOnly, err = strconv.ParseBool(v); err != nil {
			return req, fmt.Errorf("facets_only: %q is not a boolean", v)
		}
	}
	if field := q.Get("order"); field != "" {
		req.Order = &search.Order{Field: field, Direction: search.Direction(strings.ToLower(q.Get("dir")))}
		if req.Order.Direction == "" {
			req.Order.Direction = search.Desc
		}
	}
	return req, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, v)
	}
	return n, nil
}

func yearParam(q url.Values, name string) (*uint32, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not a year", name, v)
	}
	y := uint32(n)
	return &y, nil
}

func timeParam(q url.Values, name string) (*time.Time, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is not a date", name, v)
}
