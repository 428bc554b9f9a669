package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/kvo5/marvel-madness/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerKey = 8
	maxTotalConns  = 10000
)

var (
	ErrHubFull     = errors.New("server connection limit reached")
	ErrKeyLimit    = errors.New("viewer connection limit reached")
	ErrHubShutdown = errors.New("hub is shutting down")
)

// ViewHub fans revalidate events out to every connected viewer.
type ViewHub struct {
	mu      sync.RWMutex
	conns   map[string]map[*Client]struct{}
	total   int
	closing bool
}

// NewViewHub creates an empty hub.
func NewViewHub() *ViewHub {
	return &ViewHub{conns: make(map[string]map[*Client]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *ViewHub) Name() string { return "view hub" }

// Register adds a connection under key. It fails when a connection limit is reached.
func (h *ViewHub) Register(key string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closing {
		return nil, ErrHubShutdown
	}
	if h.total >= maxTotalConns {
		return nil, ErrHubFull
	}
	m, ok := h.conns[key]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[key] = m
	}
	if len(m) >= maxConnsPerKey {
		return nil, ErrKeyLimit
	}

	client := NewClient(h, conn, key)
	m[client] = struct{}{}
	h.total++
	observability.WebSocketConnections.Inc()
	return client, nil
}

// UnregisterClient removes client and closes its send buffer. Calling it twice is harmless.
func (h *ViewHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.Key]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.conns, client.Key)
	}
	h.total--
	observability.WebSocketConnections.Dec()
	close(client.Send)
}

// Count reports the number of registered clients.
func (h *ViewHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// BroadcastAll sends message to every connected client.
func (h *ViewHub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			c.TrySend(data)
		}
	}
}

// StartWiring forwards every message on ViewsChannel to all viewers.
func (h *ViewHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartViewSubscriber(ctx, func(_ string, payload string) {
		h.BroadcastAll(payload)
	})
}

// Shutdown closes every client's send buffer so its WritePump sends a close frame, then
// drops all clients. Later registrations fail with ErrHubShutdown.
func (h *ViewHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closing = true
	for _, clients := range h.conns {
		for client := range clients {
			close(client.Send)
			observability.WebSocketConnections.Dec()
		}
	}
	h.conns = make(map[string]map[*Client]struct{})
	h.total = 0
	return nil
}
