package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// AttemptLookup reports whether an attempt exists and its current snapshot.
type AttemptLookup func(attemptID string) (interface{}, bool)

// Client represents a single WebSocket connection watching an attempt.
type Client struct {
	ID        string
	AttemptID string
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The
// current snapshot is sent immediately so the watcher never misses a
// transition that happened before the socket opened.
func ServeWs(hub *Hub, logger *zap.Logger, lookup AttemptLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		attemptID := c.Query("attempt_id")
		if attemptID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "attempt_id required"})
			return
		}
		snap, ok := lookup(attemptID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			AttemptID: attemptID,
			hub:       hub,
			conn:      conn,
			send:      make(chan WSMessage, 16),
			logger:    logger,
		}
		hub.Register(client)
		client.send <- WSMessage{Event: "attempt_state", Data: snap}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	// Watchers only listen; inbound frames just refresh the deadline.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
