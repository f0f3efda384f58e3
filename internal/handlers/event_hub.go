package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GlobalHub is the single hub instance for the whole application.
var GlobalHub = NewHub()

// ReconciliationEvent is pushed to every connected client of a
// workspace when a transaction's reconciliation state changes.
type ReconciliationEvent struct {
	Type          string `json:"type"`
	TransactionID uint   `json:"transactionId,omitempty"`
	ExpenseID     uint   `json:"expenseId,omitempty"`
}

type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	userID      uint
	workspaceID uint
}

// Hub fans reconciliation events out to websocket clients, scoped to
// the workspace the event belongs to.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			slog.Info("Event client registered", "user_id", client.userID, "workspace_id", client.workspaceID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("Event client unregistered", "user_id", client.userID)
		}
	}
}

// Broadcast sends an event to every client of the given workspace.
// A slow client gets dropped instead of blocking the others.
func (h *Hub) Broadcast(workspaceID uint, event ReconciliationEvent) {
	messageBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal reconciliation event", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.workspaceID != workspaceID {
			continue
		}
		select {
		case client.send <- messageBytes:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	// Event stream is one-way; reads only detect the close.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected websocket close error", "error", err)
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Failed to write event to websocket", "error", err)
			return
		}
	}
}

// EventsWSEndpoint upgrades the connection and registers the client
// for its workspace's reconciliation events.
func EventsWSEndpoint(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	client := &Client{
		hub:         GlobalHub,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      userID.(uint),
		workspaceID: workspaceID(c),
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
