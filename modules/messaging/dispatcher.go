package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	message "github.com/example/private-chat-demo/domain/message"
	"github.com/example/private-chat-demo/modules/presence"
)

// UserDirectory resolves usernames to directory entries. The account
// module provides the production implementation.
type UserDirectory interface {
	Resolve(ctx context.Context, username string) (*UserInfo, error)
}

// Emitter publishes the real-time events the dispatcher and lifecycle
// manager produce. The module wires it to the EventBus; tests substitute a
// recording fake.
type Emitter interface {
	GroupUpdated(group GroupDTO) error
	NewMessage(group string, msg MessageDTO) error
	NewMessageNotification(connectionIDs []string, senderUsername, senderDisplayName string) error
}

// Dispatcher creates durable messages and decides, per message, how the
// recipient learns about it right now: in-room (marked read immediately),
// online elsewhere (lightweight notification), or offline (nothing pushed).
type Dispatcher struct {
	repo      *Repository
	registry  presence.Registry
	directory UserDirectory
	emitter   Emitter
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher over its injected collaborators.
func NewDispatcher(repo *Repository, registry presence.Registry, directory UserDirectory, emitter Emitter, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		registry:  registry,
		directory: directory,
		emitter:   emitter,
		logger:    logger,
	}
}

// Dispatch validates, persists and fans out one message from sender to
// recipient. Room membership is the stronger signal and wins over generic
// presence: a recipient viewing this exact conversation gets the message
// read-marked at persistence time and no notification.
func (d *Dispatcher) Dispatch(ctx context.Context, senderUsername, recipientUsername, content string) (*MessageDTO, error) {
	recipientUsername = strings.ToLower(strings.TrimSpace(recipientUsername))
	if recipientUsername == "" {
		return nil, ErrEmptyRecipient
	}
	if senderUsername == recipientUsername {
		return nil, ErrSelfMessage
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > MaxContentLength {
		return nil, ErrContentTooLong
	}

	sender, err := d.directory.Resolve(ctx, senderUsername)
	if err != nil {
		return nil, err
	}
	recipient, err := d.directory.Resolve(ctx, recipientUsername)
	if err != nil {
		return nil, err
	}

	msg := &message.Message{
		ID:                uuid.New().String(),
		SenderUsername:    sender.Username,
		RecipientUsername: recipient.Username,
		Content:           content,
		SentAt:            time.Now().UTC(),
	}

	groupName := GroupName(sender.Username, recipient.Username)
	recipientInRoom := false
	if group, err := d.repo.GetGroup(groupName); err == nil {
		recipientInRoom = group.HasMember(recipient.Username)
	} else if !errors.Is(err, ErrGroupNotFound) {
		return nil, err
	}

	if recipientInRoom {
		now := msg.SentAt
		msg.ReadAt = &now
	}

	if err := d.repo.AddMessage(msg); err != nil {
		return nil, err
	}

	if !recipientInRoom {
		d.notifyIfOnline(ctx, sender, recipient.Username)
	}

	dto := toMessageDTO(msg)
	if err := d.emitter.NewMessage(groupName, dto); err != nil {
		d.logger.Error("Failed to publish new message event",
			"group", groupName, "messageID", msg.ID, "error", err)
	}
	return &dto, nil
}

// notifyIfOnline pushes a content-free notification to every connection of
// a recipient who is online but not in the room. Presence trouble degrades
// to "offline": the message is already durable and will be found on the
// next poll.
func (d *Dispatcher) notifyIfOnline(ctx context.Context, sender *UserInfo, recipientUsername string) {
	connectionIDs, err := d.registry.ConnectionsFor(ctx, recipientUsername)
	if err != nil {
		d.logger.Error("Failed to read presence, treating recipient as offline",
			"recipient", recipientUsername, "error", err)
		return
	}
	if len(connectionIDs) == 0 {
		return
	}
	if err := d.emitter.NewMessageNotification(connectionIDs, sender.Username, sender.DisplayName); err != nil {
		d.logger.Error("Failed to publish message notification",
			"recipient", recipientUsername, "error", err)
	}
}
