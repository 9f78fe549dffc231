// Package realtime pushes enrollment attempt state transitions to the
// browser over WebSocket, so the UI follows the flow without polling.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aura-webinar/client/internal/enrollment"
)

const (
	// PingInterval and PongWait are used for heartbeat (seconds).
	PingInterval = 30
	PongWait     = 60
)

// DetachHandler is called when the last watcher of an attempt disconnects
// (e.g. to abandon a checkout session whose hosting page is gone).
type DetachHandler func(attemptID string)

// Hub maintains attempt_id -> set of connections and broadcasts state
// transitions. Attempts are process-local, so the hub is too.
type Hub struct {
	// attemptID -> map[clientID]*Client
	attempts map[string]map[string]*Client
	mu       sync.RWMutex
	logger   *zap.Logger
	onDetach DetachHandler
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		attempts: make(map[string]map[string]*Client),
		logger:   logger,
	}
}

// SetDetachHandler sets the callback for the last watcher leaving an attempt.
func (h *Hub) SetDetachHandler(fn DetachHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDetach = fn
}

// Register adds a client watching an attempt.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.attempts[c.AttemptID] == nil {
		h.attempts[c.AttemptID] = make(map[string]*Client)
	}
	h.attempts[c.AttemptID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client watching attempt", zap.String("client_id", c.ID), zap.String("attempt_id", c.AttemptID))
}

// Unregister removes a client. Fires the detach handler when the attempt
// loses its last watcher.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var detached bool
	if m, ok := h.attempts[c.AttemptID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.attempts, c.AttemptID)
			detached = true
		}
	}
	onDetach := h.onDetach
	h.mu.Unlock()

	if detached && onDetach != nil {
		onDetach(c.AttemptID)
	}
	h.logger.Debug("client stopped watching attempt", zap.String("client_id", c.ID), zap.String("attempt_id", c.AttemptID))
}

// AttemptChanged broadcasts an attempt snapshot to its watchers. It is the
// enrollment controller's Notifier.
func (h *Hub) AttemptChanged(snap enrollment.Snapshot) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.attempts[snap.AttemptID]))
	for _, c := range h.attempts[snap.AttemptID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	msg := WSMessage{Event: "attempt_state", Data: snap}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("dropping slow websocket client", zap.String("client_id", c.ID))
		}
	}
}

// WatcherCount returns the number of connections watching an attempt.
func (h *Hub) WatcherCount(attemptID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.attempts[attemptID])
}
