package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	domain "github.com/example/private-chat-demo/domain/user"
	"github.com/example/private-chat-demo/modules/broadcast"
	"github.com/example/private-chat-demo/modules/messaging"
)

// handleWebSocket handles WebSocket connections at /ws?user=<peer>.
// Each connection is a private conversation between the authenticated
// caller and the peer named in the query.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	claims, _ := c.Locals(UserContextKey).(*domain.Claims)
	if claims == nil {
		writeErrorFrame(c, "Not authenticated")
		_ = c.Close()
		return
	}

	peer := strings.ToLower(strings.TrimSpace(c.Query("user")))
	if peer == "" || peer == claims.Username {
		writeErrorFrame(c, "Query parameter user must name another user")
		_ = c.Close()
		return
	}

	connectionID := uuid.New().String()
	client := &broadcast.Client{
		ID:       connectionID,
		Username: claims.Username,
		Group:    messaging.GroupName(claims.Username, peer),
		Conn:     c,
	}

	// Register with the hub before joining so the caller sees its own
	// updated-group frame. From here on every write goes through the hub,
	// since its delivery loop may write to this connection at any time.
	m.hub.Register(client)
	defer func() {
		if err := m.messaging.Lifecycle().Disconnect(context.Background(), connectionID); err != nil {
			slog.Error("Disconnect failed", "module", "api", "connectionID", connectionID, "error", err)
		}
		m.hub.Unregister(client)
		slog.Debug("WebSocket client disconnected",
			"connectionID", connectionID, "username", claims.Username)
	}()

	_, thread, err := m.messaging.Lifecycle().Connect(
		context.Background(), claims.Username, peer, connectionID)
	if err != nil {
		slog.Error("Connect failed", "module", "api",
			"username", claims.Username, "peer", peer, "error", err)
		m.sendWSError(connectionID, "Failed to join conversation")
		return
	}

	// The thread goes to the caller only, never to the whole group.
	m.hub.SendToClient(connectionID, "receive-message-thread", thread)

	slog.Debug("WebSocket client connected",
		"connectionID", connectionID, "username", claims.Username, "peer", peer)

	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Client closed connection", "connectionID", connectionID)
			} else {
				slog.Debug("Read error", "connectionID", connectionID, "error", err)
			}
			return
		}

		var msg wsInbound
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			m.sendWSError(connectionID, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "send-message":
			m.handleSendFrame(connectionID, claims.Username, peer, msg)
		default:
			m.sendWSError(connectionID, "Unknown message type: "+msg.Type)
		}
	}
}

// handleSendFrame dispatches a message received over the socket. The
// recipient defaults to the conversation peer.
func (m *APIModule) handleSendFrame(connectionID, sender, peer string, msg wsInbound) {
	recipient := msg.RecipientUsername
	if recipient == "" {
		recipient = peer
	}

	if _, err := m.messaging.Dispatcher().Dispatch(
		context.Background(), sender, recipient, msg.Content); err != nil {
		if messaging.IsValidation(err) || errors.Is(err, messaging.ErrRecipientNotFound) {
			m.sendWSError(connectionID, err.Error())
			return
		}
		slog.Error("Dispatch failed", "module", "api", "sender", sender, "error", err)
		m.sendWSError(connectionID, "Failed to send message")
	}
}

// sendWSError queues an error frame for a registered connection.
func (m *APIModule) sendWSError(connectionID, message string) {
	m.hub.SendToClient(connectionID, "error", message)
}

// writeErrorFrame writes an error frame directly. Only valid before the
// connection has been handed to the hub.
func writeErrorFrame(c *websocket.Conn, message string) {
	_ = c.WriteJSON(broadcast.Frame{Type: "error", Body: message})
}
