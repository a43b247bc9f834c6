package api

import (
	"net/http"

	"github.com/starford/tonearm/internal/trackservice"
)

// AudioHandler streams library files with range support.
type AudioHandler struct {
	svc *trackservice.Service
}

// NewAudioHandler creates a handler over the library.
func NewAudioHandler(svc *trackservice.Service) *AudioHandler {
	return &AudioHandler{svc: svc}
}

// ServeAudio handles GET /api/audio/*.
//
//	@Summary		Stream a track's audio
//	@Tags			tracks
//	@Produce		octet-stream
//	@Param			path	path	string	true	"Library-relative path"
//	@Success		200
//	@Success		206
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/audio/{path} [get]
func (h *AudioHandler) ServeAudio(w http.ResponseWriter, r *http.Request) {
	path := trackPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	f, fi, err := h.svc.OpenAudio(r.Context(), path)
	if err != nil {
		writeError(w, "open audio", err)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}
