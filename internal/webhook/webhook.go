// Package webhook posts signed queue events to a moderator-configured
// endpoint, so an external bot or chat integration can announce new
// submissions without polling the dashboard.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/zubitotv/zubitotv/internal/queue"
)

const maxResponseBodyBytes = 1024

// Event is the JSON body delivered to the endpoint.
type Event struct {
	Name      string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Client dispatches events with retries. A zero URL disables it.
type Client struct {
	url         string
	secret      string
	http        *http.Client
	retryDelays []time.Duration
}

func New(url, secret string) *Client {
	return &Client{
		url:         url,
		secret:      secret,
		http:        &http.Client{Timeout: 10 * time.Second},
		retryDelays: []time.Duration{1 * time.Second, 4 * time.Second},
	}
}

// SignPayload computes HMAC-SHA256 of the payload using the secret.
func SignPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// RequestSubmitted announces a new pending request. It runs in the
// request hot path's background, so failures are logged, never surfaced.
func (c *Client) RequestSubmitted(r *queue.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := c.Dispatch(ctx, Event{
			Name:      "request.submitted",
			Timestamp: time.Now().UTC(),
			Data: map[string]any{
				"id":          r.ID,
				"url":         r.URL,
				"submittedBy": r.SubmittedBy,
			},
		})
		if err != nil {
			slog.Error("webhook: delivery failed", "event", "request.submitted", "error", err)
		}
	}()
}

// Dispatch sends an event to the configured URL with up to 3 attempts.
func (c *Client) Dispatch(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	signature := SignPayload(c.secret, body)
	maxAttempts := 1 + len(c.retryDelays)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		statusCode, err := c.doPost(ctx, body, signature)
		if err == nil && statusCode >= 200 && statusCode < 300 {
			return nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("webhook returned status %d", statusCode)
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(c.retryDelays[attempt-1]):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (c *Client) doPost(ctx context.Context, body []byte, signature string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain a bounded amount so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodyBytes))

	return resp.StatusCode, nil
}
