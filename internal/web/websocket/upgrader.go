package websocket

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// OriginChecker reports whether a browser origin may connect
type OriginChecker func(origin string) bool

// Upgrader upgrades HTTP requests into room subscriptions
type Upgrader struct {
	upgrader websocket.Upgrader
	hub      *Hub
}

// NewUpgrader creates an upgrader. Requests without an Origin header and
// same-host origins are always accepted; others must pass allowed.
func NewUpgrader(hub *Hub, allowed OriginChecker) *Upgrader {
	return &Upgrader{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
					return true
				}
				return allowed != nil && allowed(origin)
			},
		},
	}
}

// Subscribe upgrades the request and joins the client to room
func (u *Upgrader) Subscribe(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		u.hub.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), room, conn, u.hub)
	select {
	case u.hub.register <- client:
	case <-u.hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
