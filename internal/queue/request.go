// Package queue owns the video request table: intake of new submissions,
// the moderation transitions, and the selection reads the playback engine
// drives from.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/zubitotv/zubitotv/internal/database"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusRejected Status = "rejected"
)

// AnonymousName is used when a submitter leaves the name field blank.
const AnonymousName = "ANONYMOUS"

// HistoryLimit caps the finished list shown on the dashboard.
const HistoryLimit = 20

// ErrNotFound is returned when a transition matched no row, either because
// the id is unknown or the row is not in the required source status.
var ErrNotFound = errors.New("request not found")

type Request struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	SubmittedBy  string    `json:"submittedBy"`
	Status       Status    `json:"status"`
	IsLoopTarget bool      `json:"isLoopTarget"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

const requestColumns = `id, url, submitted_by, status, is_loop_target, created_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.URL, &r.SubmittedBy, &r.Status, &r.IsLoopTarget, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Insert creates a pending request. The submitter name is trimmed,
// uppercased and defaulted when blank.
func (s *Store) Insert(ctx context.Context, url, submittedBy string) (*Request, error) {
	name := strings.ToUpper(strings.TrimSpace(submittedBy))
	if name == "" {
		name = AnonymousName
	}
	r, err := scanRequest(s.db.QueryRow(ctx,
		`INSERT INTO videos (url, submitted_by, status)
		 VALUES ($1, $2, 'pending')
		 RETURNING `+requestColumns,
		url, name,
	))
	if err != nil {
		return nil, fmt.Errorf("insert request: %w", err)
	}
	return r, nil
}

// List returns every request, newest first, for the dashboard feed.
func (s *Store) List(ctx context.Context) ([]Request, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+requestColumns+` FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		var r Request
		if err := rows.Scan(&r.ID, &r.URL, &r.SubmittedBy, &r.Status, &r.IsLoopTarget, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

// Playing returns the row currently marked playing, or nil when none.
// If more than one exists the longest-standing one wins.
func (s *Store) Playing(ctx context.Context) (*Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM videos
		 WHERE status = 'playing'
		 ORDER BY updated_at ASC
		 LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read playing request: %w", err)
	}
	return r, nil
}

// ClaimNext atomically promotes the oldest approved request to playing and
// returns it, or nil when the queue is empty. Concurrent claimers skip each
// other instead of double-claiming.
func (s *Store) ClaimNext(ctx context.Context) (*Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx,
		`UPDATE videos SET status = 'playing', updated_at = now()
		 WHERE id = (
		     SELECT id FROM videos
		     WHERE status = 'approved'
		     ORDER BY created_at ASC LIMIT 1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+requestColumns))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next request: %w", err)
	}
	return r, nil
}

// LoopTarget returns the designated loop row, or nil when none is set.
func (s *Store) LoopTarget(ctx context.Context) (*Request, error) {
	r, err := scanRequest(s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM videos
		 WHERE is_loop_target
		 LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read loop target: %w", err)
	}
	return r, nil
}

// SetLoopTarget designates id as the single loop target. A single statement
// clears every other flag and sets the new one, so a concurrent reader
// never observes zero or two targets.
func (s *Store) SetLoopTarget(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM videos WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check loop target: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	_, err := s.db.Exec(ctx,
		`UPDATE videos SET is_loop_target = (id = $1)
		 WHERE is_loop_target IS DISTINCT FROM (id = $1)`,
		id,
	)
	if err != nil {
		return fmt.Errorf("set loop target: %w", err)
	}
	return nil
}

func (s *Store) transition(ctx context.Context, id string, to Status, from ...Status) error {
	query := `UPDATE videos SET status = $1, updated_at = now() WHERE id = $2`
	args := []any{string(to), id}
	if len(from) > 0 {
		states := make([]string, len(from))
		for i, st := range from {
			states[i] = string(st)
		}
		query += ` AND status = ANY($3)`
		args = append(args, states)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set status %s: %w", to, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve moves a pending request into the play queue.
func (s *Store) Approve(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusApproved, StatusPending)
}

// Reject drops a pending request.
func (s *Store) Reject(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusRejected, StatusPending)
}

// Requeue returns a request to the moderation inbox from any status.
func (s *Store) Requeue(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusPending)
}

// Replay puts a finished request back into the play queue.
func (s *Store) Replay(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusApproved, StatusFinished)
}

// Skip ends the currently playing request.
func (s *Store) Skip(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusFinished, StatusPlaying)
}

// Finish records natural completion. The engine also calls it after an
// unrecoverable playback error on a non-loop item.
func (s *Store) Finish(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusFinished, StatusPlaying)
}
