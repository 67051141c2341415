package server

import (
	"fmt"
	"net/http"

	"github.com/zubitotv/zubitotv/internal/httputil"
)

type SecurityConfig struct {
	BaseURL string
}

// securityHeaders sets the response headers and issues the per-request CSP
// nonce. The policy admits the YouTube IFrame player and thumbnail host and
// the same-origin display WebSocket; everything else stays same-origin.
func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := cfg.BaseURL != "" && hasHTTPS(cfg.BaseURL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()
			ctx := httputil.ContextWithNonce(r.Context(), nonce)

			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			csp := fmt.Sprintf(
				"default-src 'self'; img-src 'self' data: https://img.youtube.com https://i.ytimg.com; "+
					"script-src 'self' 'nonce-%s' https://www.youtube.com; style-src 'self' 'nonce-%s'; "+
					"frame-src https://www.youtube.com; connect-src 'self' ws: wss:; frame-ancestors 'self';",
				nonce, nonce,
			)
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasHTTPS(baseURL string) bool {
	return len(baseURL) >= 8 && baseURL[:8] == "https://"
}
