package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/dgnsrekt/pagecast/internal/events"
)

// eventsHandler upgrades the connection to a WebSocket and streams capture
// lifecycle events as JSON text frames until the client disconnects.
func eventsHandler(broker *events.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("events upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer func() { _ = conn.Close() }()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		// Drain client frames so close frames are noticed.
		clientGone := make(chan struct{})
		go func() {
			defer close(clientGone)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		slog.Debug("events client connected", "remote", r.RemoteAddr, "clients", broker.ClientCount())
		for {
			select {
			case <-r.Context().Done():
				return
			case <-clientGone:
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					slog.Debug("event marshal failed", "error", err)
					continue
				}
				if err := wsutil.WriteServerText(conn, payload); err != nil {
					return
				}
			}
		}
	}
}
