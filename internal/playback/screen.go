package playback

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	sendBufferSize = 16
)

// command is what the engine sends the display page.
type command struct {
	Cmd         string `json:"cmd"`
	VideoID     string `json:"videoId,omitempty"`
	SubmittedBy string `json:"submittedBy,omitempty"`
	IsLoop      bool   `json:"isLoop,omitempty"`
	Muted       bool   `json:"muted,omitempty"`
	Quality     string `json:"quality,omitempty"`
}

// displayMessage is a lifecycle report from the display page.
type displayMessage struct {
	Event   string  `json:"event"` // ready | state | error | unmuted | skip | position
	State   int     `json:"state"`
	Seconds float64 `json:"seconds"`
	Code    int     `json:"code"`
}

// Screen bridges the engine to the YouTube embed running in the TV display
// page over a websocket. It implements Player; with no display attached
// every command is a no-op, which satisfies the engine's contract.
//
// At most one display is active: a newer connection supplants the older.
type Screen struct {
	upgrader websocket.Upgrader
	events   chan Event

	mu       sync.Mutex
	active   *displayConn
	position float64
}

type displayConn struct {
	conn *websocket.Conn
	send chan command
	done chan struct{}
	once sync.Once
}

func NewScreen() *Screen {
	return &Screen{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		events: make(chan Event, 16),
	}
}

// Events is the lifecycle feed the engine consumes.
func (s *Screen) Events() <-chan Event {
	return s.events
}

// ServeHTTP upgrades the TV page connection and makes it the active display.
func (s *Screen) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("display: websocket upgrade failed", "error", err)
		return
	}

	d := &displayConn{
		conn: conn,
		send: make(chan command, sendBufferSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.active != nil {
		s.active.close()
	}
	s.active = d
	s.position = 0
	s.mu.Unlock()

	slog.Info("display: connected", "remote_addr", r.RemoteAddr)
	go d.writePump()
	go s.readPump(d)

	s.emit(Event{Kind: EventDisplayConnected})
}

func (s *Screen) readPump(d *displayConn) {
	defer func() {
		d.close()
		s.mu.Lock()
		if s.active == d {
			s.active = nil
		}
		s.mu.Unlock()
	}()

	d.conn.SetReadLimit(1 << 16)
	_ = d.conn.SetReadDeadline(time.Now().Add(pongWait))
	d.conn.SetPongHandler(func(string) error {
		return d.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := d.conn.ReadMessage()
		if err != nil {
			slog.Info("display: disconnected", "error", err)
			return
		}
		var msg displayMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			slog.Warn("display: malformed message", "error", err)
			continue
		}
		s.handleMessage(msg)
	}
}

func (s *Screen) handleMessage(msg displayMessage) {
	switch msg.Event {
	case "ready":
		s.emit(Event{Kind: EventReady})
	case "state":
		s.emit(Event{Kind: EventStateChange, State: msg.State})
	case "error":
		slog.Warn("display: player error", "code", msg.Code)
		s.emit(Event{Kind: EventError})
	case "unmuted":
		s.emit(Event{Kind: EventUnmuted})
	case "skip":
		s.emit(Event{Kind: EventSkipRequested})
	case "position":
		s.mu.Lock()
		s.position = msg.Seconds
		s.mu.Unlock()
	}
}

// emit never blocks the read pump; if the engine is behind, the next poll
// cycle reconciles from the store anyway.
func (s *Screen) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		slog.Warn("display: event dropped", "kind", ev.Kind)
	}
}

func (d *displayConn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = d.conn.Close()
	}()

	for {
		select {
		case <-d.done:
			return
		case cmd := <-d.send:
			_ = d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := d.conn.WriteJSON(cmd); err != nil {
				slog.Info("display: write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := d.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (d *displayConn) close() {
	d.once.Do(func() {
		close(d.done)
		_ = d.conn.Close()
	})
}

// push enqueues a command for the active display, dropping it when none is
// attached or the display is too slow to drain its buffer.
func (s *Screen) push(cmd command) {
	s.mu.Lock()
	d := s.active
	s.mu.Unlock()
	if d == nil {
		return
	}
	select {
	case d.send <- cmd:
	case <-d.done:
	default:
		slog.Warn("display: command dropped, display not draining", "cmd", cmd.Cmd)
	}
}

// Load binds the display to a new video.
func (s *Screen) Load(item Item, muted bool) {
	s.mu.Lock()
	s.position = 0
	s.mu.Unlock()
	s.push(command{
		Cmd:         "load",
		VideoID:     item.VideoID,
		SubmittedBy: item.SubmittedBy,
		IsLoop:      item.IsLoop,
		Muted:       muted,
	})
}

func (s *Screen) Play() {
	s.push(command{Cmd: "play"})
}

func (s *Screen) SetQuality(quality string) {
	s.push(command{Cmd: "quality", Quality: quality})
}

// Destroy clears the display back to the idle placeholder. Idempotent.
func (s *Screen) Destroy() {
	s.mu.Lock()
	s.position = 0
	s.mu.Unlock()
	s.push(command{Cmd: "destroy"})
}

// Position is the last playback position the display reported.
func (s *Screen) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}
