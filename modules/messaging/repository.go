package messaging

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	message "github.com/example/private-chat-demo/domain/message"
)

// Repository persists messages, groups and group connections using GORM.
//
// Group membership changes are transactional: a join is never observable
// half-committed, and two peers racing to create the same group resolve to
// a single row.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new messaging repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AddToGroup attaches a connection to the named group, creating the group
// if it does not exist yet. The whole join is one transaction; the returned
// group includes the new member.
func (r *Repository) AddToGroup(groupName, connectionID, username string) (*message.Group, error) {
	var group message.Group
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&message.Group{Name: groupName}).Error; err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		conn := message.Connection{
			ConnectionID: connectionID,
			Username:     username,
			GroupName:    groupName,
		}
		if err := tx.Create(&conn).Error; err != nil {
			return fmt.Errorf("failed to attach connection: %w", err)
		}
		return tx.Preload("Connections").First(&group, "name = ?", groupName).Error
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// RemoveConnection detaches a connection from whatever group holds it and
// returns the group with its remaining members plus the removed record.
// An unknown connection id is a legitimate race (duplicate disconnect, or a
// join that never committed) and yields (nil, nil, nil).
func (r *Repository) RemoveConnection(connectionID string) (*message.Group, *message.Connection, error) {
	var (
		group message.Group
		conn  message.Connection
		found bool
	)
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&conn, "connection_id = ?", connectionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to find connection: %w", err)
		}
		found = true
		if err := tx.Delete(&message.Connection{}, "connection_id = ?", connectionID).Error; err != nil {
			return fmt.Errorf("failed to remove connection: %w", err)
		}
		return tx.Preload("Connections").First(&group, "name = ?", conn.GroupName).Error
	})
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, nil
	}
	return &group, &conn, nil
}

// GetGroup returns the named group with its current members.
func (r *Repository) GetGroup(name string) (*message.Group, error) {
	var group message.Group
	if err := r.db.Preload("Connections").First(&group, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	return &group, nil
}

// GroupForConnection returns the group containing the given connection, or
// ErrGroupNotFound when the connection is attached to none.
func (r *Repository) GroupForConnection(connectionID string) (*message.Group, error) {
	var conn message.Connection
	if err := r.db.First(&conn, "connection_id = ?", connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to find connection: %w", err)
	}
	return r.GetGroup(conn.GroupName)
}

// AddMessage persists a new message row.
func (r *Repository) AddMessage(m *message.Message) error {
	if err := r.db.Create(m).Error; err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetMessage returns a message by id.
func (r *Repository) GetMessage(id string) (*message.Message, error) {
	var m message.Message
	if err := r.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	return &m, nil
}

// GetThread returns the conversation between the two users, oldest first,
// excluding messages the respective party soft-deleted. As a side effect it
// marks every unread message addressed to currentUsername as read; the mark
// commits before the thread is returned.
func (r *Repository) GetThread(currentUsername, peerUsername string) ([]message.Message, error) {
	var msgs []message.Message
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("recipient_username = ? AND sender_username = ? AND recipient_deleted = ?",
				currentUsername, peerUsername, false).
			Or("recipient_username = ? AND sender_username = ? AND sender_deleted = ?",
				peerUsername, currentUsername, false).
			Order("sent_at asc").
			Find(&msgs).Error; err != nil {
			return fmt.Errorf("failed to load thread: %w", err)
		}

		now := time.Now().UTC()
		var unreadIDs []string
		for i := range msgs {
			if msgs[i].ReadAt == nil && msgs[i].RecipientUsername == currentUsername {
				unreadIDs = append(unreadIDs, msgs[i].ID)
				msgs[i].ReadAt = &now
			}
		}
		if len(unreadIDs) == 0 {
			return nil
		}
		if err := tx.Model(&message.Message{}).
			Where("id IN ?", unreadIDs).
			Update("read_at", now).Error; err != nil {
			return fmt.Errorf("failed to mark thread read: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// containerScope builds the predicate for one mailbox view. Each container
// maps to an explicit query; there is no free-form string dispatch.
func containerScope(c message.Container, username string) func(*gorm.DB) *gorm.DB {
	switch c {
	case message.Inbox:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("recipient_username = ? AND recipient_deleted = ?", username, false)
		}
	case message.Outbox:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("sender_username = ? AND sender_deleted = ?", username, false)
		}
	default:
		return func(db *gorm.DB) *gorm.DB {
			return db.Where("recipient_username = ? AND recipient_deleted = ? AND read_at IS NULL",
				username, false)
		}
	}
}

// ListForUser returns one page of the user's messages for the given
// container, newest first, along with the unpaged total.
func (r *Repository) ListForUser(username string, c message.Container, page PageParams) ([]message.Message, int64, error) {
	page = page.Normalize()
	scope := containerScope(c, username)

	var total int64
	if err := r.db.Model(&message.Message{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var msgs []message.Message
	if err := r.db.Scopes(scope).
		Order("sent_at desc").
		Offset((page.PageNumber - 1) * page.PageSize).
		Limit(page.PageSize).
		Find(&msgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, total, nil
}

// DeleteForUser applies one party's soft delete to a message. Setting a
// flag that is already set is a no-op. Once both parties have deleted, the
// row is physically removed and later deletes report ErrMessageNotFound.
func (r *Repository) DeleteForUser(id, username string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var m message.Message
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMessageNotFound
			}
			return fmt.Errorf("failed to find message: %w", err)
		}

		switch username {
		case m.SenderUsername:
			m.SenderDeleted = true
		case m.RecipientUsername:
			m.RecipientDeleted = true
		default:
			return ErrNotParticipant
		}

		if m.SenderDeleted && m.RecipientDeleted {
			if err := tx.Delete(&message.Message{}, "id = ?", id).Error; err != nil {
				return fmt.Errorf("failed to delete message: %w", err)
			}
			return nil
		}
		if err := tx.Model(&message.Message{}).Where("id = ?", id).
			Updates(map[string]any{
				"sender_deleted":    m.SenderDeleted,
				"recipient_deleted": m.RecipientDeleted,
			}).Error; err != nil {
			return fmt.Errorf("failed to update message: %w", err)
		}
		return nil
	})
}
