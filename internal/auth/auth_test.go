package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"golang.org/x/crypto/bcrypt"
)

func loginBody(t *testing.T, email, password string) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(body)
}

func TestLogin_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(`SELECT id, password FROM operators`).
		WithArgs("op@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "password"}).AddRow("op-1", string(hashed)))

	handler := NewHandler(mock, testSecret)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, "op@example.com", "correct-horse"))

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	claims, err := ValidateToken(testSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("expected a valid session token: %v", err)
	}
	if claims.OperatorID != "op-1" {
		t.Errorf("expected operator id op-1, got %q", claims.OperatorID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectQuery(`SELECT id, password FROM operators`).
		WithArgs("op@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"id", "password"}).AddRow("op-1", string(hashed)))

	handler := NewHandler(mock, testSecret)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, "op@example.com", "wrong"))

	handler.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	handler := NewHandler(nil, testSecret)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, "", ""))

	handler.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMiddleware_AllowsValidToken(t *testing.T) {
	handler := NewHandler(nil, testSecret)
	token, err := GenerateSessionToken(testSecret, "op-1")
	if err != nil {
		t.Fatal(err)
	}

	var gotOperatorID string
	protected := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOperatorID = OperatorIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/queue", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if gotOperatorID != "op-1" {
		t.Errorf("expected operator id in context, got %q", gotOperatorID)
	}
}

func TestMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	handler := NewHandler(nil, testSecret)
	protected := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"NoHeader", ""},
		{"NotBearer", "Basic abc123"},
		{"InvalidToken", "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/queue", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			protected.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestProvisionOperator_Upserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO operators`).
		WithArgs("op@example.com", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := ProvisionOperator(context.Background(), mock, "op@example.com", "correct-horse"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestProvisionOperator_RejectsShortPassword(t *testing.T) {
	if err := ProvisionOperator(context.Background(), nil, "op@example.com", "short"); err == nil {
		t.Error("expected error for a short password")
	}
}
