package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control frames
	maxMessageSize = 4 * 1024
)

// Client is one subscriber connection
type Client struct {
	ID   string
	room string
	conn *websocket.Conn
	hub  *Hub

	// send is owned by the hub, which closes it on unregister
	send    chan []byte
	// replies carries answers to the client's own frames
	replies chan []byte
}

func newClient(id, room string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:      id,
		room:    room,
		conn:    conn,
		hub:     hub,
		send:    make(chan []byte, 32),
		replies: make(chan []byte, 8),
	}
}

// readPump answers pings and watches for the connection closing
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(Event{Type: EventError, Data: map[string]string{"message": "invalid message"}})
			continue
		}
		switch msg.Type {
		case "ping":
			c.reply(Event{Type: EventPong, Data: msg.Data})
		default:
			c.reply(Event{Type: EventError, Data: map[string]string{"message": "unsupported message type: " + msg.Type}})
		}
	}
}

// reply queues a frame for this client only
func (c *Client) reply(e Event) {
	data, err := encodeEvent(e)
	if err != nil {
		return
	}
	select {
	case c.replies <- data:
	default:
	}
}

// writePump writes queued events and keeps the connection alive with pings
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case message := <-c.replies:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
