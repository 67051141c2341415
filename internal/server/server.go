// Package server wires every HTTP surface onto one chi router: the public
// pages and submit API, the operator login and admin API, and the display
// WebSocket.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zubitotv/zubitotv/internal/auth"
	"github.com/zubitotv/zubitotv/internal/database"
	"github.com/zubitotv/zubitotv/internal/queue"
	"github.com/zubitotv/zubitotv/internal/ratelimit"
	"github.com/zubitotv/zubitotv/internal/web"
)

// SubmitCooldown is how long a client waits between accepted requests.
const SubmitCooldown = 60 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	DB        database.DBTX
	Pinger    Pinger
	JWTSecret string
	BaseURL   string

	// Display is the WebSocket endpoint the TV page connects to.
	Display http.Handler

	// OnQueueChange is invoked after any write that should wake the
	// playback engine.
	OnQueueChange func()

	// Notifier, when non-nil, is told about new submissions.
	Notifier queue.Notifier
}

type Server struct {
	router       chi.Router
	pinger       Pinger
	authHandler  *auth.Handler
	queueHandler *queue.Handler
	display      http.Handler
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	s := &Server{
		router:       r,
		pinger:       cfg.Pinger,
		authHandler:  auth.NewHandler(cfg.DB, cfg.JWTSecret),
		queueHandler: queue.NewHandler(cfg.DB, cfg.OnQueueChange),
		display:      cfg.Display,
	}
	if cfg.Notifier != nil {
		s.queueHandler.SetNotifier(cfg.Notifier)
	}

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	authLimiter := ratelimit.NewLimiter(0.5, 5)
	s.router.Route("/api/auth", func(r chi.Router) {
		r.Use(authLimiter.Middleware)
		r.Post("/login", s.authHandler.Login)
	})

	submitCooldown := ratelimit.NewCooldown(SubmitCooldown)
	s.router.With(submitCooldown.Middleware).Post("/api/requests", s.queueHandler.Submit)

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(s.authHandler.Middleware)
		r.Get("/queue", s.queueHandler.Dashboard)
		r.Post("/requests/{id}/approve", s.queueHandler.Approve)
		r.Post("/requests/{id}/reject", s.queueHandler.Reject)
		r.Post("/requests/{id}/requeue", s.queueHandler.Requeue)
		r.Post("/requests/{id}/replay", s.queueHandler.Replay)
		r.Post("/requests/{id}/skip", s.queueHandler.Skip)
		r.Put("/requests/{id}/loop-target", s.queueHandler.SetLoopTarget)
		r.Put("/settings/idle-mode", s.queueHandler.SetIdleMode)
	})

	if s.display != nil {
		s.router.Get("/ws/display", s.display.ServeHTTP)
	}

	s.router.Get("/", web.SubmitPage)
	s.router.Get("/tv", web.TVPage)
	s.router.Get("/admin", web.AdminPage)
	s.router.Get("/login", web.LoginPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"database unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
