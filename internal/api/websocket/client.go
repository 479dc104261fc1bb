package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/microgridplanner/planner-core/internal/config"
	"github.com/microgridplanner/planner-core/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	defaultPing    = 54 * time.Second
	defaultMaxSize = 512
)

// Client is one browser connection. Writes go through the send channel; the
// hub never touches the conn directly.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string

	// computeIDs filters which jobs this client hears about. Empty means all
	// of the user's jobs.
	computeIDs map[string]bool

	pingInterval time.Duration
	maxMsgSize   int64
	logger       logger.Logger
}

func (c *Client) wantsJob(computeID string) bool {
	return len(c.computeIDs) == 0 || c.computeIDs[computeID]
}

func (c *Client) subscribedIDs() []string {
	ids := make([]string, 0, len(c.computeIDs))
	for id := range c.computeIDs {
		ids = append(ids, id)
	}
	return ids
}

// ServeWS upgrades the request and registers the client on the hub. The
// compute_id query parameter takes a comma-separated list of job ids to
// subscribe to.
func ServeWS(hub *Hub, cfg config.WebSocketConfig, log logger.Logger, w http.ResponseWriter, r *http.Request, userID string, checkOrigin func(*http.Request) bool) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	computeIDs := make(map[string]bool)
	if raw := r.URL.Query().Get("compute_id"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				computeIDs[id] = true
			}
		}
	}

	pingInterval := defaultPing
	if cfg.PingInterval > 0 {
		pingInterval = time.Duration(cfg.PingInterval) * time.Second
	}
	maxMsgSize := int64(defaultMaxSize)
	if cfg.MaxMessageSize > 0 {
		maxMsgSize = int64(cfg.MaxMessageSize)
	}

	client := &Client{
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, 16),
		userID:       userID,
		computeIDs:   computeIDs,
		pingInterval: pingInterval,
		maxMsgSize:   maxMsgSize,
		logger:       log,
	}

	hub.register <- client
	go client.writePump()
	go client.readPump()
}

// readPump drains inbound frames so ping/pong and close handling work. The
// stream is server-push only; client payloads are discarded.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
