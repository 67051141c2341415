package web

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/zubitotv/zubitotv/internal/httputil"
)

var submitPageTemplate = template.Must(template.New("submit").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>ZubitoTV — Request a Video</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #09090b; color: #fff; min-height: 100vh;
            display: flex; align-items: center; justify-content: center;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            padding: 1.5rem;
        }
        .card { width: 100%; max-width: 28rem; }
        h1 { font-size: 2rem; font-weight: 800; text-transform: uppercase; font-style: italic; }
        h1 span { color: #ec4899; }
        p.sub { color: #71717a; font-size: 0.85rem; margin: 0.5rem 0 2rem; }
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
        button:disabled { background: #27272a; color: #52525b; cursor: not-allowed; }
        #preview { width: 100%; border-radius: 0.75rem; margin-bottom: 1.25rem; display: none; }
        #banner { padding: 0.9rem 1rem; border-radius: 0.75rem; font-size: 0.85rem; margin-bottom: 1.25rem; display: none; }
        #banner.error { display: block; background: rgba(239,68,68,0.1); border: 1px solid rgba(239,68,68,0.4); color: #f87171; }
        #banner.ok { display: block; background: rgba(34,197,94,0.1); border: 1px solid rgba(34,197,94,0.4); color: #4ade80; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Zubito<span>TV</span></h1>
        <p class="sub">Request a video for the big screen. Keep it friendly.</p>
        <div id="banner"></div>
        <img id="preview" alt="">
        <form id="form">
            <label for="url">YouTube link</label>
            <input id="url" type="text" placeholder="https://youtube.com/watch?v=..." maxlength="500" autocomplete="off">
            <label for="name">Your name (optional)</label>
            <input id="name" type="text" placeholder="ANONYMOUS" maxlength="20" autocomplete="off">
            <button id="send" type="submit">Send to screen</button>
        </form>
    </div>
    <script nonce="{{.Nonce}}">
    (function () {
        var COOLDOWN_MS = 60000;
        var form = document.getElementById('form');
        var urlInput = document.getElementById('url');
        var nameInput = document.getElementById('name');
        var button = document.getElementById('send');
        var banner = document.getElementById('banner');
        var preview = document.getElementById('preview');
        var timer = null;

        function videoID(ref) {
            var m = ref.match(/(?:youtube\.com\/(?:[^\/]+\/.+\/|(?:v|e(?:mbed)?|shorts)\/|.*[?&]v=)|youtu\.be\/)([A-Za-z0-9_-]{11})/);
            if (m) return m[1];
            if (/^[A-Za-z0-9_-]{11}$/.test(ref)) return ref;
            return null;
        }

        function show(kind, text) {
            banner.className = kind;
            banner.textContent = text;
        }

        function startCooldown(until) {
            localStorage.setItem('zubito_cooldown_until', String(until));
            tick();
            if (timer) clearInterval(timer);
            timer = setInterval(tick, 1000);
        }

        function tick() {
            var until = Number(localStorage.getItem('zubito_cooldown_until') || 0);
            var left = Math.ceil((until - Date.now()) / 1000);
            if (left > 0) {
                button.disabled = true;
                button.textContent = 'Wait ' + left + 's';
            } else {
                button.disabled = false;
                button.textContent = 'Send to screen';
                if (timer) { clearInterval(timer); timer = null; }
            }
        }
        tick();
        if (button.disabled) timer = setInterval(tick, 1000);

        urlInput.addEventListener('input', function () {
            var id = videoID(urlInput.value.trim());
            if (id) {
                preview.src = 'https://img.youtube.com/vi/' + id + '/mqdefault.jpg';
                preview.style.display = 'block';
            } else {
                preview.style.display = 'none';
            }
        });

        form.addEventListener('submit', function (ev) {
            ev.preventDefault();
            var ref = urlInput.value.trim();
            if (!videoID(ref)) {
                show('error', 'That does not look like a YouTube link.');
                return;
            }
            button.disabled = true;
            fetch('/api/requests', {
                method: 'POST',
                headers: {'Content-Type': 'application/json'},
                body: JSON.stringify({url: ref, name: nameInput.value.trim()})
            }).then(function (res) {
                if (res.status === 201) {
                    show('ok', 'Sent! Your request is waiting for the moderator.');
                    form.reset();
                    preview.style.display = 'none';
                    startCooldown(Date.now() + COOLDOWN_MS);
                    return null;
                }
                return res.json().then(function (body) {
                    if (res.status === 429) {
                        var secs = body.retryAfterSeconds || 60;
                        show('error', 'Easy there. Try again in ' + secs + ' seconds.');
                        startCooldown(Date.now() + secs * 1000);
                    } else {
                        show('error', body.error || 'Something went wrong.');
                        button.disabled = false;
                    }
                });
            }).catch(function () {
                show('error', 'Network error. Try again.');
                button.disabled = false;
            });
        });
    })();
    </script>
</body>
</html>`))

func SubmitPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := submitPageTemplate.Execute(w, map[string]string{
		"Nonce": httputil.NonceFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("submit page render failed", "error", err)
	}
}
