// Package playback drives the TV display: it polls the shared store,
// deterministically selects at most one current item, binds the embedded
// player to it, and writes terminal statuses back.
package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/zubitotv/zubitotv/internal/queue"
	"github.com/zubitotv/zubitotv/internal/settings"
	"github.com/zubitotv/zubitotv/internal/validate"
)

const (
	// LoopItemID is the synthetic identity of the idle-loop view. The stored
	// loop-target row keeps its own id and status.
	LoopItemID = "active-loop-system"
	// SystemLoopName replaces the submitter name while the loop plays.
	SystemLoopName = "SYSTEM (LOOP)"

	highestQuality = "highres"

	// DefaultInterval is how often the engine re-reads the store.
	DefaultInterval = 3 * time.Second
)

// Item is what the display presents: a stored request, or the transient
// loop view synthesized from the loop target.
type Item struct {
	ID          string
	URL         string
	VideoID     string
	SubmittedBy string
	IsLoop      bool
}

// sameIdentity prevents flicker: re-selecting the already-adopted item must
// not rebind the player. Identity is the (ID, URL) pair so that swapping
// the loop target rebinds even though the synthetic id is constant.
func sameIdentity(a, b *Item) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.URL == b.URL
}

// Store is the slice of the request table the engine needs.
type Store interface {
	Playing(ctx context.Context) (*queue.Request, error)
	ClaimNext(ctx context.Context) (*queue.Request, error)
	LoopTarget(ctx context.Context) (*queue.Request, error)
	Finish(ctx context.Context, id string) error
}

// Settings reads the idle-mode flag.
type Settings interface {
	IdleMode(ctx context.Context) (settings.Mode, error)
}

// Player is the embedded video surface the engine owns exclusively. All
// methods must be safe to call with no display attached.
type Player interface {
	Load(item Item, muted bool)
	Play()
	SetQuality(quality string)
	Destroy()
	// Position reports elapsed playback seconds, zero when unknown.
	Position() float64
}

type EventKind int

const (
	EventReady EventKind = iota
	EventStateChange
	EventError
	EventUnmuted
	EventSkipRequested
	EventDisplayConnected
)

// Player states, mirroring the YouTube IFrame API codes.
const (
	StateEnded   = 0
	StatePlaying = 1
)

// Event is a lifecycle signal from the player surface.
type Event struct {
	Kind  EventKind
	State int
}

type Config struct {
	Store    Store
	Settings Settings
	Player   Player
	Events   <-chan Event
	Interval time.Duration
	// MaxPlaySeconds caps non-loop playback when positive; zero disables
	// the cap entirely.
	MaxPlaySeconds int
}

type Engine struct {
	store          Store
	settings       Settings
	player         Player
	events         <-chan Event
	kick           chan struct{}
	interval       time.Duration
	maxPlaySeconds int

	current    *Item
	muted      bool
	pollSeq    uint64
	appliedSeq uint64
}

func NewEngine(cfg Config) *Engine {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		store:          cfg.Store,
		settings:       cfg.Settings,
		player:         cfg.Player,
		events:         cfg.Events,
		kick:           make(chan struct{}, 1),
		interval:       interval,
		maxPlaySeconds: cfg.MaxPlaySeconds,
		muted:          true,
	}
}

// Kick requests an immediate re-poll. Safe from any goroutine; coalesces
// while one is already pending.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Run owns the engine until ctx is done. All state is confined to this
// goroutine; polls therefore apply in issue order, and the sequence guard
// in apply keeps that true even if selection is ever made concurrent.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("playback: engine started", "interval", e.interval, "max_play_seconds", e.maxPlaySeconds)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			e.player.Destroy()
			slog.Info("playback: engine shutting down")
			return
		case <-ticker.C:
			e.runOnce(ctx)
		case <-e.kick:
			e.runOnce(ctx)
		case ev := <-e.events:
			e.handleEvent(ctx, ev)
		}
	}
}

// runOnce performs one selection cycle and enforces the duration cap.
// Store failures are logged and left for the next cycle.
func (e *Engine) runOnce(ctx context.Context) {
	for {
		e.pollSeq++
		seq := e.pollSeq

		selected, err := e.selectNext(ctx)
		if err != nil {
			slog.Error("playback: selection failed", "error", err)
			return
		}

		// An unplayable reference on a real item would wedge the queue:
		// finish it and pick again.
		if selected != nil && !selected.IsLoop && selected.VideoID == "" {
			slog.Warn("playback: unplayable reference, finishing", "id", selected.ID, "url", selected.URL)
			if err := e.store.Finish(ctx, selected.ID); err != nil {
				slog.Error("playback: finish failed", "id", selected.ID, "error", err)
				return
			}
			continue
		}

		e.apply(selected, seq)
		break
	}

	e.enforceDurationCap(ctx)
}

// selectNext implements the selection order: adopt the playing row, else
// claim the oldest approved row, else fall back to the idle-mode loop view,
// else nothing.
func (e *Engine) selectNext(ctx context.Context) (*Item, error) {
	playing, err := e.store.Playing(ctx)
	if err != nil {
		return nil, err
	}
	if playing != nil {
		return itemFromRequest(playing), nil
	}

	claimed, err := e.store.ClaimNext(ctx)
	if err != nil {
		return nil, err
	}
	if claimed != nil {
		return itemFromRequest(claimed), nil
	}

	mode, err := e.settings.IdleMode(ctx)
	if err != nil {
		return nil, err
	}
	if mode != settings.ModeLoop {
		return nil, nil
	}

	target, err := e.store.LoopTarget(ctx)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}
	videoID, _ := validate.YouTubeID(target.URL)
	return &Item{
		ID:          LoopItemID,
		URL:         target.URL,
		VideoID:     videoID,
		SubmittedBy: SystemLoopName,
		IsLoop:      true,
	}, nil
}

func itemFromRequest(r *queue.Request) *Item {
	videoID, _ := validate.YouTubeID(r.URL)
	return &Item{
		ID:          r.ID,
		URL:         r.URL,
		VideoID:     videoID,
		SubmittedBy: r.SubmittedBy,
	}
}

// apply adopts the selection. Results from a poll older than the last
// applied one are discarded regardless of arrival order.
func (e *Engine) apply(selected *Item, seq uint64) {
	if seq <= e.appliedSeq {
		slog.Debug("playback: discarding stale poll result", "seq", seq, "applied", e.appliedSeq)
		return
	}
	e.appliedSeq = seq

	if sameIdentity(e.current, selected) {
		return
	}

	if e.current != nil {
		e.player.Destroy()
	}
	e.current = selected
	if selected == nil {
		slog.Info("playback: idle")
		return
	}
	slog.Info("playback: now presenting", "id", selected.ID, "video", selected.VideoID, "loop", selected.IsLoop)
	e.player.Load(*selected, e.muted)
}

// advance tears the player down, finishes the current real item, and
// immediately selects again. Loop items never transition status.
func (e *Engine) advance(ctx context.Context) {
	e.player.Destroy()
	if e.current != nil && !e.current.IsLoop {
		if err := e.store.Finish(ctx, e.current.ID); err != nil {
			slog.Error("playback: finish failed", "id", e.current.ID, "error", err)
		}
	}
	e.current = nil
	e.runOnce(ctx)
}

func (e *Engine) handleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventReady:
		// Some embed backends silently downgrade quality at start; ask for
		// the highest tier now and again once playback begins.
		e.player.SetQuality(highestQuality)
		e.player.Play()

	case EventStateChange:
		switch ev.State {
		case StatePlaying:
			e.player.SetQuality(highestQuality)
		case StateEnded:
			if e.current != nil && e.current.IsLoop {
				e.player.Play()
				return
			}
			e.advance(ctx)
		}

	case EventError:
		if e.current == nil {
			return
		}
		if e.current.IsLoop {
			slog.Warn("playback: loop item error, retrying on next natural end", "id", e.current.ID)
			return
		}
		slog.Warn("playback: player error, advancing", "id", e.current.ID)
		e.advance(ctx)

	case EventUnmuted:
		e.muted = false

	case EventSkipRequested:
		// The on-screen next button; loop items have nothing to skip to.
		if e.current == nil || e.current.IsLoop {
			return
		}
		slog.Info("playback: display requested skip", "id", e.current.ID)
		e.advance(ctx)

	case EventDisplayConnected:
		if e.current != nil {
			e.player.Load(*e.current, e.muted)
		}
	}
}

func (e *Engine) enforceDurationCap(ctx context.Context) {
	if e.maxPlaySeconds <= 0 {
		return
	}
	if e.current == nil || e.current.IsLoop {
		return
	}
	if e.player.Position() > float64(e.maxPlaySeconds) {
		slog.Info("playback: duration cap exceeded, skipping", "id", e.current.ID, "cap_seconds", e.maxPlaySeconds)
		e.advance(ctx)
	}
}
