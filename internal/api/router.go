package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tonearm/internal/trackservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *trackservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAudioHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/search", h.Search)
	r.Get("/tracks/*", h.GetTrack)
	r.Get("/audio/*", ah.ServeAudio)

	r.Get("/status", h.Status)
	r.Post("/reindex", h.Reindex)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
