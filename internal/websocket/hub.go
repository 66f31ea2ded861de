package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"posbackend/internal/events"
	"posbackend/internal/middleware"
	"posbackend/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by CORS on the HTTP side; tokens gate the socket itself.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected dashboard, scoped to one tenant
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	TenantID uuid.UUID
}

type message struct {
	tenantID uuid.UUID
	body     []byte
}

// Hub maintains the set of active clients and broadcasts settlement events to
// the clients of the event's tenant
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *zap.Logger
}

// NewHub initializes a new WS Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the dispatch loop. It owns the client set and returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("websocket client connected", zap.String("tenant_id", client.TenantID.String()))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Debug("websocket client disconnected", zap.String("tenant_id", client.TenantID.String()))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.TenantID != msg.tenantID {
					continue
				}
				select {
				case client.Send <- msg.body:
				default:
					// Slow consumer
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Publish queues event for the event tenant's dashboards.
func (h *Hub) Publish(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	select {
	case h.broadcast <- message{tenantID: event.TenantID, body: body}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errHubStopped
	}
}

var errHubStopped = errors.New("websocket hub stopped")

// join hands c to the dispatch loop. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave removes c. After the hub has stopped the client set is already gone.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive until the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		_ = c.Conn.Close()
	}()
	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}
	}
}

// ServeWs upgrades a dashboard connection. Only privileged roles may subscribe.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.logger.Info("websocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := middleware.ParseToken(secret, tokenString)
	if err != nil {
		hub.logger.Info("websocket connection rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	if !model.IsPrivilegedRole(claims.Role) {
		hub.logger.Info("websocket connection rejected: inadequate permissions", zap.String("role", claims.Role))
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), TenantID: tenantID}
	if !hub.join(client) {
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
