package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

type subscribed struct {
	Type   string         `json:"type"`
	Mode   string         `json:"mode"`
	Status StatusResponse `json:"status"`
}

// handleWSEvents pushes the mode's lifecycle events over a WebSocket. The
// first message is a "subscribed" frame carrying the current status. Client
// messages are ignored.
func handleWSEvents(logger *slog.Logger, modes *Registry, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := modes.Get(modeName(r))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidMode, "unknown mode")
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ch := broker.Subscribe(m.Name)
		defer broker.Unsubscribe(m.Name, ch)

		ctx := conn.CloseRead(r.Context())

		hello, _ := json.Marshal(subscribed{Type: "subscribed", Mode: m.Name, Status: statusOf(m)})
		if err := conn.Write(ctx, websocket.MessageText, hello); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Debug("websocket closed", "mode", m.Name, "error", ctx.Err())
				return
			case msg := <-ch:
				if err := conn.Write(ctx, websocket.MessageText, msg.Data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				if err := conn.Ping(ctx); err != nil {
					logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}
