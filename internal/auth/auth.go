// Package auth guards the moderation surface. Operator accounts are
// provisioned at boot from the environment; there is no self-service
// registration.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/zubitotv/zubitotv/internal/database"
	"github.com/zubitotv/zubitotv/internal/httputil"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const operatorIDKey contextKey = "operatorID"

type Handler struct {
	db        database.DBTX
	jwtSecret string
}

func NewHandler(db database.DBTX, jwtSecret string) *Handler {
	return &Handler{db: db, jwtSecret: jwtSecret}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	var operatorID, hashedPassword string
	err := h.db.QueryRow(r.Context(),
		"SELECT id, password FROM operators WHERE email = $1", req.Email,
	).Scan(&operatorID, &hashedPassword)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := GenerateSessionToken(h.jwtSecret, operatorID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

// Middleware rejects requests without a valid operator session.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := ValidateToken(h.jwtSecret, tokenStr)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), operatorIDKey, claims.OperatorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func OperatorIDFromContext(ctx context.Context) string {
	operatorID, _ := ctx.Value(operatorIDKey).(string)
	return operatorID
}

// ProvisionOperator upserts the boot-time operator account with the given
// plaintext password, replacing any previous hash so password rotation is
// just a restart.
func ProvisionOperator(ctx context.Context, db database.DBTX, email, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("operator password must be at least 8 characters")
	}
	if len(password) > 72 {
		return fmt.Errorf("operator password must be at most 72 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash operator password: %w", err)
	}

	_, err = db.Exec(ctx,
		`INSERT INTO operators (email, password) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET password = EXCLUDED.password`,
		email, string(hashed),
	)
	if err != nil {
		return fmt.Errorf("provision operator: %w", err)
	}
	return nil
}
