package notifications

import (
	"context"
	"time"

	"github.com/marinaua13/social-media-api/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Connection timing. pingEvery must stay below idleTimeout so a healthy peer's
// pong always arrives before the read deadline.
const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10

	// The stream is push-only; anything bigger than a close frame is abuse.
	maxInboundBytes = 1024
	queueDepth      = 64
)

// Client is one websocket connection owned by a user. The hub writes into
// queue; writeLoop is the only goroutine touching the connection's writer.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint
	queue  chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		queue:  make(chan []byte, queueDepth),
	}
}

// readLoop discards inbound frames until the peer leaves or goes quiet for
// idleTimeout, then unregisters the client.
func (c *Client) readLoop(ctx context.Context) {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.LogError(ctx, c.userID, err, "read")
			}
			return
		}
	}
}

// writeLoop sends queued events and keepalive pings. A closed queue means the
// hub dropped this client, so it says goodbye with a close frame.
func (c *Client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !open {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue never blocks the publisher. A slow reader loses the event. Callers
// hold the hub's read lock, so the queue cannot be closed underneath.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.queue <- msg:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		return false
	}
}
