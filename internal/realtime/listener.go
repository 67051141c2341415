// Package realtime turns PostgreSQL NOTIFY events into re-poll hints.
// Delivery is best-effort by design: every consumer also runs a periodic
// poll, so a dropped notification only delays the next observed state by
// one poll interval.
package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel carries the "something changed" hints emitted by the schema's
// statement triggers on videos and settings.
const Channel = "jukebox_changes"

const defaultRetryDelay = 3 * time.Second

type Listener struct {
	pool       *pgxpool.Pool
	onHint     func(table string)
	retryDelay time.Duration
}

// NewListener invokes onHint with the changed table name for every
// notification received.
func NewListener(pool *pgxpool.Pool, onHint func(table string)) *Listener {
	return &Listener{pool: pool, onHint: onHint, retryDelay: defaultRetryDelay}
}

// Run blocks until ctx is done, reconnecting after any failure.
func (l *Listener) Run(ctx context.Context) {
	slog.Info("realtime: listener started", "channel", Channel)
	for {
		if err := l.listen(ctx); err != nil && ctx.Err() == nil {
			slog.Error("realtime: listener lost connection", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("realtime: listener shutting down")
			return
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	// The connection is poisoned for pooling once it has LISTEN state;
	// hijacking takes it out of rotation for good.
	raw := conn.Hijack()
	defer raw.Close(context.Background())

	if _, err := raw.Exec(ctx, "LISTEN "+Channel); err != nil {
		return err
	}

	for {
		notification, err := raw.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		slog.Debug("realtime: change hint", "table", notification.Payload)
		if l.onHint != nil {
			l.onHint(notification.Payload)
		}
	}
}
