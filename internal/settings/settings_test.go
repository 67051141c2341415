package settings

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

func TestIdleMode_ReturnsStoredValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("loop"))

	store := NewStore(mock)
	mode, err := store.IdleMode(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeLoop {
		t.Errorf("expected %q, got %q", ModeLoop, mode)
	}
}

func TestIdleMode_UnknownValueFallsBackToLoading(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("disco"))

	store := NewStore(mock)
	mode, err := store.IdleMode(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeLoading {
		t.Errorf("expected fallback to %q, got %q", ModeLoading, mode)
	}
}

func TestIdleMode_MissingRowFallsBackToLoading(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT value FROM settings`).
		WithArgs("idle_mode").
		WillReturnError(pgx.ErrNoRows)

	store := NewStore(mock)
	mode, err := store.IdleMode(context.Background())
	if err != nil {
		t.Fatalf("expected missing row to idle, got error: %v", err)
	}
	if mode != ModeLoading {
		t.Errorf("expected fallback to %q, got %q", ModeLoading, mode)
	}
}

func TestSetIdleMode_Upserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO settings`).
		WithArgs("idle_mode", "loop").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock)
	if err := store.SetIdleMode(context.Background(), ModeLoop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSetIdleMode_RejectsUnknownMode(t *testing.T) {
	store := NewStore(nil)
	if err := store.SetIdleMode(context.Background(), Mode("disco")); err == nil {
		t.Error("expected error for unknown mode")
	}
}
