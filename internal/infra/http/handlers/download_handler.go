package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-lifecycle/internal/usecase"
)

type DownloadHandler struct {
	downloads *usecase.Downloads
	resp      Responder
}

func NewDownloadHandler(downloads *usecase.Downloads, resp Responder) *DownloadHandler {
	return &DownloadHandler{downloads: downloads, resp: resp}
}

// Serve GET /api/downloads/secure/{filename}?token=...
func (h *DownloadHandler) Serve(w http.ResponseWriter, r *http.Request) {
	target, err := h.downloads.Resolve(r.Context(), chi.URLParam(r, "filename"), r.URL.Query().Get("token"))
	if err != nil {
		h.resp.Error(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, http.StatusFound)
}
