package web

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/zubitotv/zubitotv/internal/httputil"
)

var adminPageTemplate = template.Must(template.New("admin").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>ZubitoTV — Control Room</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { background: #09090b; color: #fff; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; padding: 1.5rem; }
        header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 1.5rem; }
        h1 { font-size: 1.4rem; font-weight: 800; text-transform: uppercase; font-style: italic; }
        h1 span { color: #ec4899; }
        .mode { display: flex; gap: 0.5rem; }
        .mode button, #logout { background: #18181b; border: 1px solid #27272a; color: #a1a1aa; padding: 0.5rem 1rem; border-radius: 0.5rem; font-size: 0.75rem; font-weight: 700; text-transform: uppercase; cursor: pointer; }
        .mode button.on { background: #ec4899; border-color: #ec4899; color: #fff; }
        main { display: grid; grid-template-columns: repeat(auto-fit, minmax(18rem, 1fr)); gap: 1.5rem; }
        section h2 { color: #71717a; font-size: 0.7rem; font-weight: 700; text-transform: uppercase; letter-spacing: 0.2em; margin-bottom: 0.75rem; }
        .item { background: #18181b; border: 1px solid #27272a; border-radius: 0.75rem; padding: 0.9rem 1rem; margin-bottom: 0.75rem; }
        .item.now { border-color: #ec4899; }
        .item.loop { border-color: #9333ea; }
        .item .by { font-weight: 700; font-size: 0.9rem; }
        .item .url { color: #71717a; font-size: 0.75rem; word-break: break-all; margin: 0.25rem 0 0.6rem; }
        .item .actions { display: flex; flex-wrap: wrap; gap: 0.4rem; }
        .item button { border: none; border-radius: 0.4rem; padding: 0.35rem 0.7rem; font-size: 0.7rem; font-weight: 700; text-transform: uppercase; cursor: pointer; }
        .approve { background: #16a34a; color: #fff; }
        .reject, .skip { background: #dc2626; color: #fff; }
        .requeue, .replay { background: #27272a; color: #d4d4d8; }
        .looptarget { background: #9333ea; color: #fff; }
        .empty { color: #3f3f46; font-size: 0.8rem; font-style: italic; }
    </style>
</head>
<body>
    <header>
        <h1>Control <span>Room</span></h1>
        <div class="mode">
            <button id="mode-loop">Idle: Loop</button>
            <button id="mode-loading">Idle: Loading</button>
            <button id="logout">Log out</button>
        </div>
    </header>
    <main>
        <section><h2>Now Playing</h2><div id="playing"></div></section>
        <section><h2>Pending</h2><div id="pending"></div></section>
        <section><h2>Up Next</h2><div id="approved"></div></section>
        <section><h2>History</h2><div id="finished"></div></section>
    </main>
    <script nonce="{{.Nonce}}">
    (function () {
        var token = localStorage.getItem('operator_token');
        if (!token) { location.href = '/login'; return; }

        function api(method, path, body) {
            return fetch(path, {
                method: method,
                headers: {
                    'Authorization': 'Bearer ' + token,
                    'Content-Type': 'application/json'
                },
                body: body ? JSON.stringify(body) : undefined
            }).then(function (res) {
                if (res.status === 401) {
                    localStorage.removeItem('operator_token');
                    location.href = '/login';
                    throw new Error('unauthorized');
                }
                return res;
            });
        }

        function esc(s) {
            var d = document.createElement('div');
            d.textContent = s;
            return d.innerHTML;
        }

        function actionsFor(item, lane) {
            var a = [];
            if (lane === 'pending') {
                a.push(['approve', 'Approve']);
                a.push(['reject', 'Reject']);
            }
            if (lane === 'playing') a.push(['skip', 'Skip']);
            if (lane === 'approved') a.push(['requeue', 'Hold']);
            if (lane === 'finished') a.push(['replay', 'Replay']);
            if (!item.isLoopTarget && lane !== 'playing') a.push(['looptarget', 'Set Loop']);
            return a;
        }

        function render(lane, items) {
            var box = document.getElementById(lane);
            box.innerHTML = '';
            if (!items || items.length === 0) {
                box.innerHTML = '<p class="empty">Nothing here.</p>';
                return;
            }
            items.forEach(function (item) {
                var div = document.createElement('div');
                div.className = 'item' + (lane === 'playing' ? ' now' : '') + (item.isLoopTarget ? ' loop' : '');
                var buttons = actionsFor(item, lane).map(function (pair) {
                    return '<button class="' + pair[0] + '" data-act="' + pair[0] + '" data-id="' + item.id + '">' + pair[1] + '</button>';
                }).join('');
                div.innerHTML = '<p class="by">' + esc(item.submittedBy) + (item.isLoopTarget ? ' · LOOP' : '') + '</p>'
                    + '<p class="url">' + esc(item.url) + '</p>'
                    + '<div class="actions">' + buttons + '</div>';
                box.appendChild(div);
            });
        }

        function setModeButtons(mode) {
            document.getElementById('mode-loop').classList.toggle('on', mode === 'loop');
            document.getElementById('mode-loading').classList.toggle('on', mode === 'loading');
        }

        function refresh() {
            api('GET', '/api/admin/queue').then(function (res) {
                return res.json();
            }).then(function (body) {
                render('playing', body.playing ? [body.playing] : []);
                render('pending', body.pending);
                render('approved', body.approved);
                render('finished', body.finished);
                setModeButtons(body.idleMode);
            }).catch(function () {});
        }

        document.body.addEventListener('click', function (ev) {
            var btn = ev.target.closest('button[data-act]');
            if (!btn) return;
            var id = btn.getAttribute('data-id');
            var act = btn.getAttribute('data-act');
            var req;
            if (act === 'looptarget') {
                req = api('PUT', '/api/admin/requests/' + id + '/loop-target');
            } else {
                req = api('POST', '/api/admin/requests/' + id + '/' + act);
            }
            req.then(refresh).catch(function () {});
        });

        document.getElementById('mode-loop').addEventListener('click', function () {
            api('PUT', '/api/admin/settings/idle-mode', {mode: 'loop'}).then(refresh).catch(function () {});
        });
        document.getElementById('mode-loading').addEventListener('click', function () {
            api('PUT', '/api/admin/settings/idle-mode', {mode: 'loading'}).then(refresh).catch(function () {});
        });
        document.getElementById('logout').addEventListener('click', function () {
            localStorage.removeItem('operator_token');
            location.href = '/login';
        });

        refresh();
        setInterval(refresh, 3000);
    })();
    </script>
</body>
</html>`))

func AdminPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := adminPageTemplate.Execute(w, map[string]string{
		"Nonce": httputil.NonceFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("admin page render failed", "error", err)
	}
}
