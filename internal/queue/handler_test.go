package queue

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/zubitotv/zubitotv/internal/settings"
)

func newTestRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/api/requests", h.Submit)
	r.Get("/api/admin/queue", h.Dashboard)
	r.Post("/api/admin/requests/{id}/approve", h.Approve)
	r.Post("/api/admin/requests/{id}/reject", h.Reject)
	r.Post("/api/admin/requests/{id}/requeue", h.Requeue)
	r.Post("/api/admin/requests/{id}/replay", h.Replay)
	r.Post("/api/admin/requests/{id}/skip", h.Skip)
	r.Put("/api/admin/requests/{id}/loop-target", h.SetLoopTarget)
	r.Put("/api/admin/settings/idle-mode", h.SetIdleMode)
	return r
}

func TestSubmit_CreatesPendingRequest(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`INSERT INTO videos`).
		WithArgs(testURL, "ZUBITO").
		WillReturnRows(requestRow("v1", StatusPending))

	var kicked bool
	handler := NewHandler(mock, func() { kicked = true })
	router := newTestRouter(handler)

	body, _ := json.Marshal(submitRequest{URL: testURL, Name: "zubito"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.ID != "v1" {
		t.Errorf("expected id v1, got %q", resp.ID)
	}
	if resp.Thumbnail != "https://img.youtube.com/vi/dQw4w9WgXcQ/mqdefault.jpg" {
		t.Errorf("unexpected thumbnail: %q", resp.Thumbnail)
	}
	if !kicked {
		t.Error("expected the change hint to fire on acceptance")
	}
}

func TestSubmit_RejectsUnrecognizableReference(t *testing.T) {
	handler := NewHandler(nil, nil)
	router := newTestRouter(handler)

	body, _ := json.Marshal(submitRequest{URL: "https://example.com/cats", Name: "zubito"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 before any store round-trip, got %d", rec.Code)
	}
}

func TestSubmit_RejectsOverlongName(t *testing.T) {
	handler := NewHandler(nil, nil)
	router := newTestRouter(handler)

	body, _ := json.Marshal(submitRequest{URL: testURL, Name: "THIS NAME IS FAR TOO LONG FOR THE OVERLAY"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDashboard_PartitionsByStatus(t *testing.T) {
	mock := newMockPool(t)

	base := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(requestColumnNames)
	// Newest first, as the store query orders them.
	rows.AddRow("p1", testURL, "A", string(StatusPending), false, base.Add(5*time.Minute))
	rows.AddRow("a2", testURL, "B", string(StatusApproved), false, base.Add(4*time.Minute))
	rows.AddRow("a1", testURL, "C", string(StatusApproved), false, base.Add(3*time.Minute))
	rows.AddRow("pl", testURL, "D", string(StatusPlaying), false, base.Add(2*time.Minute))
	rows.AddRow("f1", testURL, "E", string(StatusFinished), true, base.Add(time.Minute))
	rows.AddRow("r1", testURL, "F", string(StatusRejected), false, base)

	mock.ExpectQuery(`SELECT (.+) FROM videos ORDER BY created_at DESC`).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("loop"))

	handler := NewHandler(mock, nil)
	router := newTestRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/queue", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Playing == nil || resp.Playing.ID != "pl" {
		t.Errorf("expected playing pl, got %+v", resp.Playing)
	}
	// FIFO: oldest approved first.
	if len(resp.Approved) != 2 || resp.Approved[0].ID != "a1" || resp.Approved[1].ID != "a2" {
		t.Errorf("expected approved FIFO [a1 a2], got %+v", resp.Approved)
	}
	if len(resp.Pending) != 1 || resp.Pending[0].ID != "p1" {
		t.Errorf("expected pending [p1], got %+v", resp.Pending)
	}
	if len(resp.Finished) != 1 || resp.Finished[0].ID != "f1" || !resp.Finished[0].IsLoopTarget {
		t.Errorf("expected finished [f1] with loop flag, got %+v", resp.Finished)
	}
	if resp.IdleMode != settings.ModeLoop {
		t.Errorf("expected loop idle mode, got %q", resp.IdleMode)
	}
}

func TestDashboard_CapsHistory(t *testing.T) {
	mock := newMockPool(t)

	base := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows(requestColumnNames)
	for i := 0; i < HistoryLimit+5; i++ {
		rows.AddRow("f"+strconv.Itoa(i), testURL, "X", string(StatusFinished), false,
			base.Add(-time.Duration(i)*time.Minute))
	}
	mock.ExpectQuery(`SELECT (.+) FROM videos ORDER BY created_at DESC`).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("loading"))

	handler := NewHandler(mock, nil)
	router := newTestRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/queue", nil))

	var resp dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Finished) != HistoryLimit {
		t.Errorf("expected history capped at %d, got %d", HistoryLimit, len(resp.Finished))
	}
	// Most recent first.
	if resp.Finished[0].ID != "f0" {
		t.Errorf("expected most recent entry first, got %q", resp.Finished[0].ID)
	}
}

func TestApprove_Returns204AndKicks(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`UPDATE videos SET status`).
		WithArgs(string(StatusApproved), "v1", []string{string(StatusPending)}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	var kicked bool
	handler := NewHandler(mock, func() { kicked = true })
	router := newTestRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/requests/v1/approve", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !kicked {
		t.Error("expected the change hint to fire")
	}
}

func TestSkip_UnknownOrNotPlayingIs404(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`UPDATE videos SET status`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	handler := NewHandler(mock, nil)
	router := newTestRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/requests/ghost/skip", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSetLoopTarget_SwitchesIdleModeToLoop(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("v1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE videos SET is_loop_target`).
		WithArgs("v1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("loading"))
	mock.ExpectExec(`INSERT INTO settings`).
		WithArgs("idle_mode", "loop").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	handler := NewHandler(mock, nil)
	router := newTestRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/requests/v1/loop-target", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSetLoopTarget_AlreadyLoopModeLeavesSettingAlone(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("v1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE videos SET is_loop_target`).
		WithArgs("v1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("loop"))

	handler := NewHandler(mock, nil)
	router := newTestRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/requests/v1/loop-target", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSetIdleMode_ValidatesMode(t *testing.T) {
	handler := NewHandler(nil, nil)
	router := newTestRouter(handler)

	body, _ := json.Marshal(idleModeRequest{Mode: "disco"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/settings/idle-mode", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSetIdleMode_Writes(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`INSERT INTO settings`).
		WithArgs("idle_mode", "loading").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	handler := NewHandler(mock, nil)
	router := newTestRouter(handler)

	body, _ := json.Marshal(idleModeRequest{Mode: settings.ModeLoading})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/admin/settings/idle-mode", bytes.NewReader(body)))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
}
