package web

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/zubitotv/zubitotv/internal/httputil"
)

var loginPageTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>ZubitoTV — Operator Login</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #09090b; color: #fff; min-height: 100vh;
            display: flex; align-items: center; justify-content: center;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            padding: 1.5rem;
        }
        .card { width: 100%; max-width: 22rem; }
        h1 { font-size: 1.6rem; font-weight: 800; text-transform: uppercase; font-style: italic; margin-bottom: 2rem; }
        h1 span { color: #ec4899; }
        label { display: block; color: #a1a1aa; font-size: 0.7rem; font-weight: 700; text-transform: uppercase; letter-spacing: 0.15em; margin-bottom: 0.5rem; }
        input {
            width: 100%; background: #18181b; border: 1px solid #27272a; color: #fff;
            padding: 0.9rem 1rem; border-radius: 0.75rem; font-size: 1rem; margin-bottom: 1.25rem;
        }
        input:focus { outline: none; border-color: #ec4899; }
        button {
            width: 100%; background: #ec4899; color: #fff; border: none; font-weight: 800;
            text-transform: uppercase; letter-spacing: 0.1em; padding: 1rem; border-radius: 0.75rem;
            font-size: 0.95rem; cursor: pointer;
        }
        #error { color: #f87171; font-size: 0.85rem; margin-bottom: 1.25rem; display: none; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Operator <span>Login</span></h1>
        <p id="error"></p>
        <form id="form">
            <label for="email">Email</label>
            <input id="email" type="email" autocomplete="username" required>
            <label for="password">Password</label>
            <input id="password" type="password" autocomplete="current-password" required>
            <button type="submit">Sign in</button>
        </form>
    </div>
    <script nonce="{{.Nonce}}">
    (function () {
        var form = document.getElementById('form');
        var errBox = document.getElementById('error');
        form.addEventListener('submit', function (ev) {
            ev.preventDefault();
            errBox.style.display = 'none';
            fetch('/api/auth/login', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({
                    email: document.getElementById('email').value.trim(),
                    password: document.getElementById('password').value
                })
            }).then(function (res) {
                if (!res.ok) throw new Error('bad credentials');
                return res.json();
            }).then(function (body) {
                localStorage.setItem('operator_token', body.accessToken);
                location.href = '/admin';
            }).catch(function () {
                errBox.textContent = 'Login failed. Check your email and password.';
                errBox.style.display = 'block';
            });
        });
    })();
    </script>
</body>
</html>`))

func LoginPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := loginPageTemplate.Execute(w, map[string]string{
		"Nonce": httputil.NonceFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("login page render failed", "error", err)
	}
}
