package queue

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zubitotv/zubitotv/internal/httputil"
	"github.com/zubitotv/zubitotv/internal/ratelimit"
	"github.com/zubitotv/zubitotv/internal/validate"
)

type submitRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type submitResponse struct {
	ID        string `json:"id"`
	Thumbnail string `json:"thumbnail"`
}

// Submit accepts a public video request and appends it to the moderation
// inbox. Unrecognizable references are rejected before any store round-trip.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validate.VideoURL(req.URL); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validate.SubmitterName(req.Name); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	videoID, ok := validate.YouTubeID(req.URL)
	if !ok {
		httputil.WriteError(w, http.StatusBadRequest, "not a recognizable YouTube link")
		return
	}

	created, err := h.store.Insert(r.Context(), req.URL, req.Name)
	if err != nil {
		slog.Error("submit: insert failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not save request")
		return
	}
	ratelimit.Commit(r.Context())
	h.notifyChange()
	if h.notifier != nil {
		h.notifier.RequestSubmitted(created)
	}

	httputil.WriteJSON(w, http.StatusCreated, submitResponse{
		ID:        created.ID,
		Thumbnail: validate.ThumbnailURL(videoID),
	})
}
