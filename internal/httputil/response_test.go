package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSONSetsContentTypeAndStatus(t *testing.T) {
	recorder := httptest.NewRecorder()

	WriteJSON(recorder, http.StatusCreated, map[string]string{"id": "abc"})

	if got := recorder.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", got)
	}
	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, recorder.Code)
	}
}

func TestWriteJSONEncodesStructBody(t *testing.T) {
	type item struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	recorder := httptest.NewRecorder()
	WriteJSON(recorder, http.StatusOK, item{ID: "42", Status: "pending"})

	var decoded item
	if err := json.NewDecoder(recorder.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if decoded.ID != "42" || decoded.Status != "pending" {
		t.Errorf("unexpected body: %+v", decoded)
	}
}

func TestWriteErrorProducesErrorBody(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
	}{
		{"NotFound", http.StatusNotFound, "request not found"},
		{"Unauthorized", http.StatusUnauthorized, "authentication required"},
		{"TooManyRequests", http.StatusTooManyRequests, "cooldown active"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()

			WriteError(recorder, tt.statusCode, tt.message)

			if recorder.Code != tt.statusCode {
				t.Errorf("expected status %d, got %d", tt.statusCode, recorder.Code)
			}
			var decoded ErrorBody
			if err := json.NewDecoder(recorder.Body).Decode(&decoded); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if decoded.Error != tt.message {
				t.Errorf("expected error=%q, got %q", tt.message, decoded.Error)
			}
		})
	}
}
