// Package web serves the three HTML surfaces: the public submit form, the
// TV display, and the moderation dashboard. Pages are inline templates;
// their scripts carry the per-request CSP nonce.
package web

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/zubitotv/zubitotv/internal/httputil"
)

var tvPageTemplate = template.Must(template.New("tv").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>ZubitoTV — Display</title>
    <style nonce="{{.Nonce}}">
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { background: #000; color: #fff; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; overflow: hidden; }
        #stage, #player { position: absolute; inset: 0; width: 100%; height: 100%; }
        #overlay {
            position: absolute; bottom: 2.5rem; left: 2.5rem; z-index: 10;
            background: rgba(0,0,0,0.8); border-left: 4px solid #ec4899;
            padding: 1.25rem 1.5rem; border-radius: 0.75rem; max-width: 40rem;
        }
        #overlay .label { color: #f472b6; font-size: 0.7rem; font-weight: 700; text-transform: uppercase; letter-spacing: 0.2em; }
        #overlay .name { font-size: 1.75rem; font-weight: 800; text-transform: uppercase; white-space: nowrap; overflow: hidden; text-overflow: ellipsis; }
        #unmute {
            position: absolute; top: 2.5rem; right: 2.5rem; z-index: 20;
            background: #fff; color: #000; font-weight: 700; border: none;
            padding: 1rem 2rem; border-radius: 9999px; font-size: 1rem; cursor: pointer;
        }
        #skip {
            position: absolute; bottom: 2.5rem; right: 2.5rem; z-index: 20;
            background: rgba(0,0,0,0.8); color: #fff; font-weight: 700;
            border: 1px solid #3f3f46; padding: 0.75rem 1.5rem;
            border-radius: 9999px; font-size: 0.85rem; cursor: pointer;
        }
        #idle { position: absolute; inset: 0; display: flex; flex-direction: column; align-items: center; justify-content: center; }
        #idle p { color: #71717a; font-family: monospace; font-size: 0.75rem; letter-spacing: 0.4em; text-transform: uppercase; margin-top: 1.5rem; }
        .spinner { width: 3rem; height: 3rem; border: 3px solid #27272a; border-top-color: #ec4899; border-radius: 50%; animation: spin 1s linear infinite; }
        @keyframes spin { to { transform: rotate(360deg); } }
        .hidden { display: none !important; }
    </style>
</head>
<body>
    <div id="stage" class="hidden">
        <div id="player"></div>
        <div id="overlay">
            <p class="label" id="overlay-label">Requested by</p>
            <h2 class="name" id="overlay-name"></h2>
        </div>
        <button id="unmute">TAP FOR SOUND</button>
        <button id="skip">NEXT &raquo;</button>
    </div>
    <div id="idle">
        <div class="spinner"></div>
        <p>Syncing signal...</p>
    </div>
    <script nonce="{{.Nonce}}" src="https://www.youtube.com/iframe_api"></script>
    <script nonce="{{.Nonce}}">
    (function () {
        var ws = null;
        var player = null;
        var apiReady = false;
        var pendingLoad = null;
        var muted = true;

        window.onYouTubeIframeAPIReady = function () {
            apiReady = true;
            if (pendingLoad) { bind(pendingLoad); pendingLoad = null; }
        };

        function send(msg) {
            if (ws && ws.readyState === WebSocket.OPEN) ws.send(JSON.stringify(msg));
        }

        function showIdle() {
            document.getElementById('stage').classList.add('hidden');
            document.getElementById('idle').classList.remove('hidden');
        }

        function showStage(cmd) {
            document.getElementById('idle').classList.add('hidden');
            document.getElementById('stage').classList.remove('hidden');
            document.getElementById('overlay-label').textContent = cmd.isLoop ? 'Standby loop' : 'Requested by';
            document.getElementById('overlay-name').textContent = cmd.submittedBy || '';
            document.getElementById('unmute').classList.toggle('hidden', !muted);
            document.getElementById('skip').classList.toggle('hidden', !!cmd.isLoop);
        }

        function teardown() {
            if (player) {
                try { player.destroy(); } catch (e) {}
                player = null;
            }
            var holder = document.createElement('div');
            holder.id = 'player';
            var old = document.getElementById('player');
            if (old) old.replaceWith(holder);
        }

        function bind(cmd) {
            if (!apiReady) { pendingLoad = cmd; return; }
            teardown();
            muted = cmd.muted;
            showStage(cmd);
            player = new YT.Player('player', {
                height: '100%',
                width: '100%',
                videoId: cmd.videoId,
                playerVars: { autoplay: 1, mute: cmd.muted ? 1 : 0, controls: 0, rel: 0, playsinline: 1, iv_load_policy: 3 },
                events: {
                    onReady: function () { send({event: 'ready'}); },
                    onStateChange: function (ev) { send({event: 'state', state: ev.data}); },
                    onError: function (ev) { send({event: 'error', code: ev.data}); }
                }
            });
        }

        function handle(cmd) {
            switch (cmd.cmd) {
            case 'load': bind(cmd); break;
            case 'play': if (player && player.playVideo) player.playVideo(); break;
            case 'quality': if (player && player.setPlaybackQuality) player.setPlaybackQuality(cmd.quality); break;
            case 'destroy': teardown(); showIdle(); break;
            }
        }

        function connect() {
            var proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(proto + '//' + location.host + '/ws/display');
            ws.onmessage = function (ev) { handle(JSON.parse(ev.data)); };
            ws.onclose = function () { setTimeout(connect, 2000); };
        }
        connect();

        document.getElementById('unmute').addEventListener('click', function () {
            muted = false;
            if (player && player.unMute) { player.unMute(); player.setVolume(100); }
            this.classList.add('hidden');
            send({event: 'unmuted'});
        });

        document.getElementById('skip').addEventListener('click', function () {
            send({event: 'skip'});
        });

        setInterval(function () {
            if (player && player.getCurrentTime) {
                send({event: 'position', seconds: player.getCurrentTime()});
            }
        }, 5000);
    })();
    </script>
</body>
</html>`))

func TVPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := tvPageTemplate.Execute(w, map[string]string{
		"Nonce": httputil.NonceFromContext(r.Context()),
	})
	if err != nil {
		slog.Error("tv page render failed", "error", err)
	}
}
