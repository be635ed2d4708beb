package message

import "time"

// Message is a durable private message between two users.
//
// ReadAt is set exactly once: either at dispatch time when the recipient is
// viewing the conversation, or when the recipient next opens the thread.
// SenderDeleted and RecipientDeleted are independent soft-delete flags; the
// row is physically removed only once both are set.
type Message struct {
	ID                string     `gorm:"primarykey;size:36" json:"id"`
	SenderUsername    string     `gorm:"size:50;not null;index" json:"sender_username"`
	RecipientUsername string     `gorm:"size:50;not null;index" json:"recipient_username"`
	Content           string     `gorm:"size:5000;not null" json:"content"`
	SentAt            time.Time  `gorm:"not null;index" json:"sent_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	SenderDeleted     bool       `gorm:"not null;default:false" json:"-"`
	RecipientDeleted  bool       `gorm:"not null;default:false" json:"-"`
}

// TableName returns the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// Group is the shared context for one two-party conversation. Its name is
// derived from the sorted pair of usernames, so both parties always resolve
// the same group.
type Group struct {
	Name        string       `gorm:"primarykey;size:101" json:"name"`
	Connections []Connection `gorm:"foreignKey:GroupName;references:Name" json:"connections"`
}

// TableName returns the table name for the Group model.
func (Group) TableName() string {
	return "groups"
}

// Connection records one live real-time session joined to a group.
type Connection struct {
	ConnectionID string `gorm:"primarykey;size:36" json:"connection_id"`
	Username     string `gorm:"size:50;not null" json:"username"`
	GroupName    string `gorm:"size:101;not null;index" json:"-"`
}

// TableName returns the table name for the Connection model.
func (Connection) TableName() string {
	return "connections"
}

// HasMember reports whether any connection in the group belongs to the
// given username.
func (g *Group) HasMember(username string) bool {
	for _, c := range g.Connections {
		if c.Username == username {
			return true
		}
	}
	return false
}

// Container selects which mailbox view a message listing returns.
type Container int

const (
	// Unread lists messages addressed to the user that have no read timestamp.
	Unread Container = iota
	// Inbox lists all messages addressed to the user.
	Inbox
	// Outbox lists all messages the user sent.
	Outbox
)

// ParseContainer maps a request parameter to a Container. Unknown values
// fall back to Unread, mirroring the listing's default view.
func ParseContainer(s string) Container {
	switch s {
	case "Inbox":
		return Inbox
	case "Outbox":
		return Outbox
	default:
		return Unread
	}
}

// String returns the container's request-parameter spelling.
func (c Container) String() string {
	switch c {
	case Inbox:
		return "Inbox"
	case Outbox:
		return "Outbox"
	default:
		return "Unread"
	}
}
