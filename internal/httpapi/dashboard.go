package httpapi

import (
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const dashboardHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>notedrop</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
h1 { font-size: 1.2em; }
table { border-collapse: collapse; width: 100%; }
td, th { border: 1px solid #333; padding: 4px 8px; text-align: left; }
.synced { color: #6c6; }
.saved_only { color: #c96; }
</style>
</head>
<body>
<h1>notedrop sync feed</h1>
<p>Enter the admin token to stream live sync events.</p>
<input id="token" type="password" placeholder="admin token">
<button onclick="connect()">Connect</button>
<table>
<thead><tr><th>time</th><th>note</th><th>sender</th><th>outcome</th><th>external id</th><th>error</th></tr></thead>
<tbody id="rows"></tbody>
</table>
<script>
function connect() {
  const token = document.getElementById("token").value;
  const proto = location.protocol === "https:" ? "wss:" : "ws:";
  const ws = new WebSocket(proto + "//" + location.host + "/dashboard/ws?token=" + encodeURIComponent(token));
  ws.onmessage = function(msg) {
    const ev = JSON.parse(msg.data);
    const row = document.createElement("tr");
    row.innerHTML = "<td>" + ev.timestamp + "</td><td>" + ev.noteId + "</td><td>" + ev.senderId +
      "</td><td class='" + ev.outcome + "'>" + ev.outcome + "</td><td>" + (ev.externalId || "") +
      "</td><td>" + (ev.error || "") + "</td>";
    document.getElementById("rows").prepend(row);
  };
}
</script>
</body>
</html>
`

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dashboardHTML))
}

// handleDashboardWS streams sync events to a dashboard client. Browsers
// cannot set an Authorization header on websocket upgrades, so the admin
// token travels in the query string instead.
func (s *Server) handleDashboardWS(w http.ResponseWriter, r *http.Request) {
	if authErr := authorizeAdminToken(r.URL.Query().Get("token"), s.cfg.AdminToken); authErr != nil {
		writeError(w, authErr.status, authErr.code, authErr.message)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := s.events.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, event); err != nil {
				return
			}
		}
	}
}
