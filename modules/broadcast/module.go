package broadcast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/private-chat-demo/modules/messaging"
)

// BroadcastModule consumes messaging events and fans them out to
// WebSocket clients through the hub.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start launches the hub delivery loop.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	slog.Info("Broadcast module started", "module", "broadcast")
	return nil
}

// Stop shuts down the hub and waits for it to drain.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	slog.Info("Broadcast module stopped", "module", "broadcast", "clients", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers subscribes to the messaging module's events.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, messaging.GroupUpdatedV1, m.handleGroupUpdated, m,
	); err != nil {
		return fmt.Errorf("failed to register GroupUpdated consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, messaging.NewMessageV1, m.handleNewMessage, m,
	); err != nil {
		return fmt.Errorf("failed to register NewMessage consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, messaging.NewMessageNotificationV1, m.handleNewMessageNotification, m,
	); err != nil {
		return fmt.Errorf("failed to register NewMessageNotification consumer: %w", err)
	}

	slog.Info("Registered broadcast event consumers", "module", "broadcast")
	return nil
}

// Event handlers

func (m *BroadcastModule) handleGroupUpdated(_ context.Context, event messaging.GroupUpdatedEvent, _ *mono.Msg) error {
	m.hub.SendToGroup(event.Group.Name, "updated-group", event.Group)
	return nil
}

func (m *BroadcastModule) handleNewMessage(_ context.Context, event messaging.NewMessageEvent, _ *mono.Msg) error {
	m.hub.SendToGroup(event.Group, "new-message", event.Message)
	return nil
}

func (m *BroadcastModule) handleNewMessageNotification(_ context.Context, event messaging.NewMessageNotificationEvent, _ *mono.Msg) error {
	m.hub.SendToConnections(event.ConnectionIDs, "new-message-notification", NotificationBody{
		Username:    event.SenderUsername,
		DisplayName: event.SenderDisplayName,
	})
	return nil
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// NotificationBody is the payload of a new-message-notification frame.
type NotificationBody struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}
