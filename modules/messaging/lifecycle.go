package messaging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/example/private-chat-demo/modules/presence"
)

// Lifecycle owns the join/leave protocol for one real-time connection. It
// keeps the durable group membership and the ephemeral presence registry
// consistent: presence is only registered after the store commit succeeds,
// and on teardown the store is updated before presence, so a failure can at
// worst leave a harmless "appears online" entry and never a stale room
// membership.
type Lifecycle struct {
	repo     *Repository
	registry presence.Registry
	emitter  Emitter
	logger   *slog.Logger
}

// NewLifecycle creates a lifecycle manager over its injected collaborators.
func NewLifecycle(repo *Repository, registry presence.Registry, emitter Emitter, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{
		repo:     repo,
		registry: registry,
		emitter:  emitter,
		logger:   logger,
	}
}

// Connect joins a new connection to the conversation group for
// (caller, peer), registers the caller's presence, announces the updated
// membership to the group, and returns the full thread for delivery to the
// caller only. Reading the thread marks the caller's unread messages as
// read, committed before the thread is returned.
func (l *Lifecycle) Connect(ctx context.Context, callerUsername, peerUsername, connectionID string) (*GroupDTO, []MessageDTO, error) {
	// Usernames are stored lowercase, so a mixed-case peer would land in
	// a group no dispatch ever targets.
	callerUsername = strings.ToLower(strings.TrimSpace(callerUsername))
	peerUsername = strings.ToLower(strings.TrimSpace(peerUsername))
	groupName := GroupName(callerUsername, peerUsername)

	group, err := l.repo.AddToGroup(groupName, connectionID, callerUsername)
	if err != nil {
		return nil, nil, err
	}

	if err := l.registry.Register(ctx, callerUsername, connectionID); err != nil {
		l.logger.Error("Failed to register presence",
			"username", callerUsername, "connectionID", connectionID, "error", err)
	}

	groupDTO := toGroupDTO(group)
	if err := l.emitter.GroupUpdated(groupDTO); err != nil {
		l.logger.Error("Failed to publish group update",
			"group", groupName, "error", err)
	}

	thread, err := l.repo.GetThread(callerUsername, peerUsername)
	if err != nil {
		return nil, nil, err
	}
	return &groupDTO, toMessageDTOs(thread), nil
}

// Disconnect detaches a connection from its group, removes its presence
// entry, and announces the remaining membership. A connection id with no
// group record is an expected race (duplicate disconnect, or a join that
// never committed) and is silently ignored.
func (l *Lifecycle) Disconnect(ctx context.Context, connectionID string) error {
	group, conn, err := l.repo.RemoveConnection(connectionID)
	if err != nil {
		return err
	}
	if conn == nil {
		l.logger.Debug("Disconnect for unknown connection ignored", "connectionID", connectionID)
		return nil
	}

	// Username comes from the removed record, not the session: the session
	// context may already be gone by the time the transport fires this.
	if err := l.registry.Unregister(ctx, conn.Username, connectionID); err != nil {
		l.logger.Error("Failed to unregister presence",
			"username", conn.Username, "connectionID", connectionID, "error", err)
	}

	if err := l.emitter.GroupUpdated(toGroupDTO(group)); err != nil {
		l.logger.Error("Failed to publish group update",
			"group", group.Name, "error", err)
	}
	return nil
}
