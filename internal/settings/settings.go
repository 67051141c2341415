// Package settings reads and writes the global key/value configuration,
// currently just the idle-mode flag the display falls back to when the
// queue is empty.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/zubitotv/zubitotv/internal/database"
)

type Mode string

const (
	// ModeLoop replays the designated loop target while the queue is empty.
	ModeLoop Mode = "loop"
	// ModeLoading shows the waiting indicator while the queue is empty.
	ModeLoading Mode = "loading"
)

const idleModeKey = "idle_mode"

func (m Mode) Valid() bool {
	return m == ModeLoop || m == ModeLoading
}

type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// IdleMode returns the current idle mode, defaulting to loading when the
// row is missing or holds an unknown value.
func (s *Store) IdleMode(ctx context.Context) (Mode, error) {
	var value string
	err := s.db.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, idleModeKey,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return ModeLoading, nil
	}
	if err != nil {
		return ModeLoading, fmt.Errorf("read idle mode: %w", err)
	}
	mode := Mode(value)
	if !mode.Valid() {
		return ModeLoading, nil
	}
	return mode, nil
}

func (s *Store) SetIdleMode(ctx context.Context, mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid idle mode %q", mode)
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		idleModeKey, string(mode),
	)
	if err != nil {
		return fmt.Errorf("write idle mode: %w", err)
	}
	return nil
}
