package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zubitotv/zubitotv/internal/database"
	"github.com/zubitotv/zubitotv/internal/httputil"
	"github.com/zubitotv/zubitotv/internal/settings"
)

// Notifier is told about new submissions, for out-of-band moderator
// alerts. Implementations must not block.
type Notifier interface {
	RequestSubmitted(r *Request)
}

// Handler exposes the public intake endpoint and the moderation actions.
type Handler struct {
	store    *Store
	settings *settings.Store
	onChange func()
	notifier Notifier
}

// NewHandler wires the queue endpoints. onChange, when non-nil, is invoked
// after every accepted mutation so the playback engine re-polls without
// waiting for its timer.
func NewHandler(db database.DBTX, onChange func()) *Handler {
	return &Handler{
		store:    NewStore(db),
		settings: settings.NewStore(db),
		onChange: onChange,
	}
}

// SetNotifier attaches an out-of-band submission notifier.
func (h *Handler) SetNotifier(n Notifier) {
	h.notifier = n
}

func (h *Handler) notifyChange() {
	if h.onChange != nil {
		h.onChange()
	}
}

type dashboardResponse struct {
	Playing  *Request      `json:"playing"`
	Approved []Request     `json:"approved"`
	Pending  []Request     `json:"pending"`
	Finished []Request     `json:"finished"`
	IdleMode settings.Mode `json:"idleMode"`
}

// Dashboard returns the moderation view: the full queue partitioned by
// status plus the idle mode. Approved is FIFO, finished is most recent
// first capped for display.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("dashboard: list failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not load queue")
		return
	}
	mode, err := h.settings.IdleMode(r.Context())
	if err != nil {
		slog.Error("dashboard: idle mode read failed", "error", err)
		mode = settings.ModeLoading
	}

	resp := dashboardResponse{
		Approved: []Request{},
		Pending:  []Request{},
		Finished: []Request{},
		IdleMode: mode,
	}
	for i := range all {
		r := all[i]
		switch r.Status {
		case StatusPlaying:
			if resp.Playing == nil {
				resp.Playing = &r
			}
		case StatusApproved:
			resp.Approved = append(resp.Approved, r)
		case StatusPending:
			resp.Pending = append(resp.Pending, r)
		case StatusFinished:
			if len(resp.Finished) < HistoryLimit {
				resp.Finished = append(resp.Finished, r)
			}
		}
	}
	// List is newest-first; the play queue is oldest-first.
	for i, j := 0, len(resp.Approved)-1; i < j; i, j = i+1, j-1 {
		resp.Approved[i], resp.Approved[j] = resp.Approved[j], resp.Approved[i]
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, name string, fn func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	err := fn(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "request not found or not in the required state")
		return
	}
	if err != nil {
		slog.Error("moderation action failed", "action", name, "id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not update request")
		return
	}
	h.notifyChange()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "approve", h.store.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "reject", h.store.Reject)
}

func (h *Handler) Requeue(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "requeue", h.store.Requeue)
}

func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "replay", h.store.Replay)
}

func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, "skip", h.store.Skip)
}

// SetLoopTarget designates a request as the idle-loop video. Picking a loop
// target also switches idle mode to loop when it is not already.
func (h *Handler) SetLoopTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.store.SetLoopTarget(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		slog.Error("set loop target failed", "id", id, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not set loop target")
		return
	}

	mode, err := h.settings.IdleMode(r.Context())
	if err != nil {
		slog.Error("set loop target: idle mode read failed", "error", err)
	} else if mode != settings.ModeLoop {
		if err := h.settings.SetIdleMode(r.Context(), settings.ModeLoop); err != nil {
			slog.Error("set loop target: idle mode switch failed", "error", err)
		}
	}

	h.notifyChange()
	w.WriteHeader(http.StatusNoContent)
}

type idleModeRequest struct {
	Mode settings.Mode `json:"mode"`
}

func (h *Handler) SetIdleMode(w http.ResponseWriter, r *http.Request) {
	var req idleModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Mode.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "mode must be loop or loading")
		return
	}
	if err := h.settings.SetIdleMode(r.Context(), req.Mode); err != nil {
		slog.Error("set idle mode failed", "mode", req.Mode, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "could not update idle mode")
		return
	}
	h.notifyChange()
	w.WriteHeader(http.StatusNoContent)
}
