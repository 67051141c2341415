package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/zubitotv/zubitotv/internal/auth"
	"github.com/zubitotv/zubitotv/internal/database"
	"github.com/zubitotv/zubitotv/internal/playback"
	"github.com/zubitotv/zubitotv/internal/queue"
	"github.com/zubitotv/zubitotv/internal/realtime"
	"github.com/zubitotv/zubitotv/internal/server"
	"github.com/zubitotv/zubitotv/internal/settings"
	"github.com/zubitotv/zubitotv/internal/webhook"
)

func main() {
	port := getEnv("PORT", "8080")

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, databaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(databaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	log.Println("database migrations applied")

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail != "" && adminPassword != "" {
		if err := auth.ProvisionOperator(ctx, db.Pool, adminEmail, adminPassword); err != nil {
			log.Fatalf("operator provisioning failed: %v", err)
		}
		log.Printf("operator %s provisioned", adminEmail)
	}

	screen := playback.NewScreen()

	engine := playback.NewEngine(playback.Config{
		Store:          queue.NewStore(db.Pool),
		Settings:       settings.NewStore(db.Pool),
		Player:         screen,
		Events:         screen.Events(),
		Interval:       playback.DefaultInterval,
		MaxPlaySeconds: int(getEnvInt64("MAX_PLAY_SECONDS", 0)),
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go engine.Run(workerCtx)

	listener := realtime.NewListener(db.Pool, func(table string) {
		engine.Kick()
	})
	go listener.Run(workerCtx)

	var notifier queue.Notifier
	if webhookURL := os.Getenv("WEBHOOK_URL"); webhookURL != "" {
		notifier = webhook.New(webhookURL, os.Getenv("WEBHOOK_SECRET"))
		log.Println("submission webhook enabled")
	}

	srv := server.New(server.Config{
		DB:            db.Pool,
		Pinger:        db,
		JWTSecret:     jwtSecret,
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		Display:       screen,
		OnQueueChange: engine.Kick,
		Notifier:      notifier,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0, // the display WebSocket stays open indefinitely
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("zubitotv listening on :%s", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Println("shutting down...")

	workerCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown failed: %v", err)
	}
	log.Println("shutdown complete")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
