package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/opdclaims/adjudicator/internal/auth"
	"github.com/opdclaims/adjudicator/internal/review"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512 * 1024 // 512KB
)

// WSMessage is the frame pushed to connected reviewers.
type WSMessage struct {
	Type    string      `json:"type"`
	ClaimID string      `json:"claim_id,omitempty"`
	Status  string      `json:"status,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Client is one connected reviewer session.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan WSMessage
	hub      *Hub
	reviewer *auth.Reviewer
	closedMu sync.Mutex
	closed   bool
}

// Hub fans review-inbox updates out to connected reviewer sessions.
type Hub struct {
	clients      map[*Client]bool
	broadcast    chan WSMessage
	register     chan *Client
	unregister   chan *Client
	mu           sync.RWMutex
	inbox        review.Inbox
	authManager  *auth.Manager
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
}

func NewHub(inbox review.Inbox, authManager *auth.Manager) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:     make(map[*Client]bool),
		broadcast:   make(chan WSMessage, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbox:       inbox,
		authManager: authManager,
		ctx:         ctx,
		cancel:      cancel,
	}
	go h.run()
	go h.watchInbox()
	return h
}

func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		log.Info().Msg("shutting down websocket hub")
		h.cancel()

		h.mu.Lock()
		for client := range h.clients {
			client.safeClose()
		}
		h.clients = make(map[*Client]bool)
		h.mu.Unlock()
	})
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Str("client_id", client.id).Int("total", total).Msg("reviewer connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.safeClose()
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Info().Str("client_id", client.id).Int("total", total).Msg("reviewer disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full, drop the connection
					go func(c *Client) {
						select {
						case h.unregister <- c:
						case <-h.ctx.Done():
						}
					}(client)
				}
			}
			h.mu.RUnlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// watchInbox pushes a fresh pending snapshot whenever the inbox changes,
// with a periodic refresh to cover missed notifications.
func (h *Hub) watchInbox() {
	notifyCh := h.inbox.NotifyChannel()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-notifyCh:
			h.broadcastPendingUpdate()
		case <-ticker.C:
			h.broadcastPendingUpdate()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) broadcastPendingUpdate() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := h.inbox.Pending(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to get pending claims for broadcast")
		return
	}

	msg := WSMessage{
		Type: "review_update",
		Data: map[string]interface{}{
			"total":   len(pending),
			"pending": pending,
		},
	}

	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	}
}

// BroadcastOverride notifies connected reviewers that a claim was decided.
func (h *Hub) BroadcastOverride(claimID, status string) {
	msg := WSMessage{
		Type:    "review_update",
		ClaimID: claimID,
		Status:  status,
	}

	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	}
}

func (c *Client) safeClose() {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.send)
	_ = c.conn.Close()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
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

// WSHandler upgrades reviewer connections and hands them to the hub.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(inbox review.Inbox, authManager *auth.Manager) *WSHandler {
	hub := NewHub(inbox, authManager)
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Auth is handled via token validation
			},
		},
	}
}

func (h *WSHandler) GetHub() *Hub {
	return h.hub
}

// HandleWebSocket authenticates via query-param or bearer token, since
// browser WebSocket clients cannot set arbitrary headers.
func (h *WSHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}

	var reviewer *auth.Reviewer
	if h.hub.authManager != nil {
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication token")
		}
		var err error
		reviewer, err = h.hub.authManager.ValidateToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("websocket auth failed")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return err
	}

	clientID := time.Now().Format("20060102150405")
	if reviewer != nil {
		clientID = reviewer.ID + "-" + clientID
	}

	client := &Client{
		id:       clientID,
		conn:     conn,
		send:     make(chan WSMessage, 256),
		hub:      h.hub,
		reviewer: reviewer,
	}

	h.hub.register <- client

	// Initial snapshot so new sessions see the current backlog
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := h.hub.inbox.Pending(ctx)
	if err == nil {
		client.send <- WSMessage{
			Type: "review_update",
			Data: map[string]interface{}{
				"total":   len(pending),
				"pending": pending,
			},
		}
	}

	go client.writePump()
	go client.readPump()

	return nil
}
