package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/marinaua13/social-media-api/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Connection caps per user and per process.
const (
	maxConnsPerUser = 12
	maxTotalConns   = 10000
)

// ErrHubClosed is returned by Register after Shutdown.
var ErrHubClosed = errors.New("notification hub is shut down")

// Hub is a websocket hub that maps userID -> set of Clients. With an enabled
// Notifier, events travel through Redis so every instance's hub delivers them.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool

	notifier *Notifier
	log      *observability.WSLogger
}

// NewHub creates a new Hub. notifier may be nil for single-process delivery.
func NewHub(notifier *Notifier) *Hub {
	return &Hub{
		conns:    make(map[uint]map[*Client]struct{}),
		notifier: notifier,
		log:      observability.NewWSLogger("notifications"),
	}
}

// Register a connection for a given userID. Returns the Client or error if limits exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := newClient(h, conn, userID)
	m[client] = struct{}{}
	h.totalConns++
	observability.ActiveWebSockets.Inc()
	return client, nil
}

// UnregisterClient removes the client and closes its send buffer. Safe to call twice.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.userID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.userID)
	}
	h.totalConns--
	close(client.queue)
	observability.ActiveWebSockets.Dec()
}

// Serve runs a registered connection until the peer disconnects.
func (h *Hub) Serve(ctx context.Context, userID uint, conn *websocket.Conn) {
	client, err := h.Register(userID, conn)
	if err != nil {
		h.log.LogError(ctx, userID, err, "register")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
		return
	}

	h.log.LogConnect(ctx, userID)
	go client.writeLoop()
	client.readLoop(ctx)
	h.log.LogDisconnect(ctx, userID, "closed")
}

// Broadcast sends message to all local connections for userID
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.conns[userID]; ok {
		data := []byte(message)
		for c := range clients {
			c.enqueue(data)
		}
	}
}

// ClientCount returns the number of local connections held for userID.
func (h *Hub) ClientCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Publish delivers event to userID's connections on every instance. Delivery is
// best effort: failures are logged and never returned to the caller.
func (h *Hub) Publish(ctx context.Context, userID uint, event Event) {
	message, err := event.Encode()
	if err != nil {
		h.log.LogError(ctx, userID, err, event.Type)
		return
	}
	observability.NotificationsPublished.WithLabelValues(event.Type).Inc()

	if h.notifier.Enabled() {
		err := h.notifier.PublishUser(ctx, userID, message)
		if err == nil {
			return
		}
		h.log.LogError(ctx, userID, err, event.Type)
	}
	h.Broadcast(userID, message)
}

// StartWiring forwards messages from the Redis pattern subscription to local connections.
func (h *Hub) StartWiring(ctx context.Context) error {
	return h.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, ok := parseUserChannel(channel)
		if !ok {
			observability.Logger().WarnContext(ctx, "invalid notification channel", "channel", channel)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every client's send buffer, which makes its write pump send a
// close frame, and refuses new connections.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for _, userConns := range h.conns {
		for client := range userConns {
			close(client.queue)
			observability.ActiveWebSockets.Dec()
		}
	}
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
