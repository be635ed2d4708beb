package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the subset of the websocket connection the hub needs.
// Tests substitute a fake; handlers pass the real *websocket.Conn.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket session. A client belongs to
// exactly one conversation group for its whole lifetime.
type Client struct {
	ID       string
	Username string
	Group    string
	Conn     Conn
}

// Frame is the envelope written to the wire for every outbound event.
type Frame struct {
	Type string `json:"type"`
	Body any    `json:"body"`
}

// outbound is an internal delivery request. Either Group or
// ConnectionIDs is set, never both.
type outbound struct {
	Group         string
	ConnectionIDs []string
	Frame         Frame
}

// Hub manages WebSocket sessions and fans events out to them. All
// deliveries flow through a single channel so frames for the same
// group keep their emission order.
type Hub struct {
	clients    map[string]*Client         // connectionID -> Client
	groups     map[string]map[string]bool // group name -> set of connectionIDs
	register   chan *Client
	unregister chan *Client
	send       chan *outbound
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		groups:     make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		send:       make(chan *outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("Hub shutting down")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.send:
			h.handleSend(msg)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// closeAllClients closes all connected client connections.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.groups = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if client.Group != "" {
		if h.groups[client.Group] == nil {
			h.groups[client.Group] = make(map[string]bool)
		}
		h.groups[client.Group][client.ID] = true
	}
	slog.Debug("Client registered", "connectionID", client.ID, "username", client.Username)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		if client.Group != "" && h.groups[client.Group] != nil {
			delete(h.groups[client.Group], client.ID)
			if len(h.groups[client.Group]) == 0 {
				delete(h.groups, client.Group)
			}
		}
		slog.Debug("Client unregistered", "connectionID", client.ID, "username", client.Username)
	}
}

func (h *Hub) handleSend(msg *outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(msg.Frame)
	if err != nil {
		slog.Error("Failed to marshal outbound frame", "type", msg.Frame.Type, "error", err)
		return
	}

	if len(msg.ConnectionIDs) > 0 {
		for _, id := range msg.ConnectionIDs {
			if client, ok := h.clients[id]; ok {
				h.writeToClient(client, data)
			}
		}
		return
	}

	if clientIDs, ok := h.groups[msg.Group]; ok {
		for clientID := range clientIDs {
			if client, ok := h.clients[clientID]; ok {
				h.writeToClient(client, data)
			}
		}
	}
}

// writeToClient delivers a frame to one client. A write failure is
// logged but does not abort delivery to the other recipients.
func (h *Hub) writeToClient(client *Client, data []byte) {
	if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("Failed to send to client", "connectionID", client.ID, "error", err)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// SendToGroup queues a frame for every member of a conversation group.
func (h *Hub) SendToGroup(group, frameType string, body any) {
	h.send <- &outbound{
		Group: group,
		Frame: Frame{Type: frameType, Body: body},
	}
}

// SendToConnections queues a frame for a specific set of connections.
func (h *Hub) SendToConnections(connectionIDs []string, frameType string, body any) {
	h.send <- &outbound{
		ConnectionIDs: connectionIDs,
		Frame:         Frame{Type: frameType, Body: body},
	}
}

// SendToClient queues a frame for a single connection. Delivery runs
// through the loop like every other send, so each connection only ever
// has one writer. Unknown connection ids are dropped on delivery.
func (h *Hub) SendToClient(connectionID, frameType string, body any) {
	h.SendToConnections([]string{connectionID}, frameType, body)
}

// GetClient returns a client by connection ID.
func (h *Hub) GetClient(connectionID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[connectionID]
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupClientCount returns the number of clients in a group.
func (h *Hub) GroupClientCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if clients, ok := h.groups[group]; ok {
		return len(clients)
	}
	return 0
}
