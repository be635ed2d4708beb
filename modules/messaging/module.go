package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/private-chat-demo/domain/message"
	"github.com/example/private-chat-demo/modules/account"
	"github.com/example/private-chat-demo/modules/presence"
)

// Module owns the message store and the dispatch/lifecycle services
// built on top of it. It resolves recipients through the account
// module and publishes delivery events on the application bus.
type Module struct {
	db         *gorm.DB
	dbPath     string
	registry   presence.Registry
	repo       *Repository
	dispatcher *Dispatcher
	lifecycle  *Lifecycle
	eventBus   mono.EventBus
	directory  UserDirectory
	logger     *slog.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the messaging module. The presence registry is
// injected so the same module works with either the in-memory or the
// Redis-backed implementation.
func NewModule(registry presence.Registry) *Module {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "chat.db"
	}
	return &Module{
		dbPath:   dbPath,
		registry: registry,
		logger:   slog.Default().With("module", "messaging"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "messaging"
}

// Dependencies declares the modules this module needs services from.
func (m *Module) Dependencies() []string {
	return []string{"account"}
}

// SetDependencyServiceContainer receives service containers from
// dependency modules.
func (m *Module) SetDependencyServiceContainer(dep string, container mono.ServiceContainer) {
	if dep == "account" {
		m.directory = NewAccountDirectory(account.NewAdapter(container))
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		GroupUpdatedV1.ToBase(),
		NewMessageV1.ToBase(),
		NewMessageNotificationV1.ToBase(),
	}
}

// Start opens the database, runs migrations and wires the services.
func (m *Module) Start(ctx context.Context) error {
	gormLogger := logger.Default.LogMode(logger.Silent)
	if os.Getenv("DB_DEBUG") == "true" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&message.Message{}, &message.Group{}, &message.Connection{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if m.directory == nil {
		return fmt.Errorf("account service container not set")
	}

	m.repo = NewRepository(db)
	emitter := &busEmitter{module: m}
	m.dispatcher = NewDispatcher(m.repo, m.registry, m.directory, emitter, m.logger)
	m.lifecycle = NewLifecycle(m.repo, m.registry, emitter, m.logger)

	m.logger.Info("Messaging module started", "dbPath", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(ctx context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("Messaging module stopped")
	return nil
}

// Health reports database connectivity.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "messaging module healthy",
		Details: map[string]any{"dbPath": m.dbPath},
	}
}

// Dispatcher returns the message dispatch service.
func (m *Module) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Lifecycle returns the connection lifecycle service.
func (m *Module) Lifecycle() *Lifecycle {
	return m.lifecycle
}

// Repo returns the message repository.
func (m *Module) Repo() *Repository {
	return m.repo
}

// Thread returns the full conversation between the current user and a
// peer, marking the current user's unread messages as read.
func (m *Module) Thread(currentUsername, peerUsername string) ([]MessageDTO, error) {
	msgs, err := m.repo.GetThread(currentUsername, peerUsername)
	if err != nil {
		return nil, err
	}
	return toMessageDTOs(msgs), nil
}

// List returns one page of a user's messages for the given container.
func (m *Module) List(username string, c message.Container, params PageParams) (*Page, error) {
	params = params.Normalize()
	msgs, total, err := m.repo.ListForUser(username, c, params)
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return &Page{
		Items:      toMessageDTOs(msgs),
		PageNumber: params.PageNumber,
		PageSize:   params.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// Delete removes a message from the caller's view. The row is
// physically deleted once both parties have removed it.
func (m *Module) Delete(id, username string) error {
	return m.repo.DeleteForUser(id, username)
}

// busEmitter publishes delivery events on the module's event bus.
type busEmitter struct {
	module *Module
}

func (e *busEmitter) GroupUpdated(group GroupDTO) error {
	event := GroupUpdatedEvent{Group: group}
	if err := GroupUpdatedV1.Publish(e.module.eventBus, event, nil); err != nil {
		return fmt.Errorf("failed to publish GroupUpdated event: %w", err)
	}
	return nil
}

func (e *busEmitter) NewMessage(group string, msg MessageDTO) error {
	event := NewMessageEvent{Group: group, Message: msg}
	if err := NewMessageV1.Publish(e.module.eventBus, event, nil); err != nil {
		return fmt.Errorf("failed to publish NewMessage event: %w", err)
	}
	return nil
}

func (e *busEmitter) NewMessageNotification(connectionIDs []string, senderUsername, senderDisplayName string) error {
	event := NewMessageNotificationEvent{
		ConnectionIDs:     connectionIDs,
		SenderUsername:    senderUsername,
		SenderDisplayName: senderDisplayName,
	}
	if err := NewMessageNotificationV1.Publish(e.module.eventBus, event, nil); err != nil {
		return fmt.Errorf("failed to publish NewMessageNotification event: %w", err)
	}
	return nil
}
