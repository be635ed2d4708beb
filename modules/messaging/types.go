package messaging

import (
	"time"

	message "github.com/example/private-chat-demo/domain/message"
)

// MaxContentLength bounds a single message body.
const MaxContentLength = 5000

// MessageDTO is the wire form of a message.
type MessageDTO struct {
	ID                string     `json:"id"`
	SenderUsername    string     `json:"sender_username"`
	RecipientUsername string     `json:"recipient_username"`
	Content           string     `json:"content"`
	SentAt            time.Time  `json:"sent_at"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
}

// ConnectionDTO is the wire form of one group member connection.
type ConnectionDTO struct {
	ConnectionID string `json:"connection_id"`
	Username     string `json:"username"`
}

// GroupDTO is the wire form of a group's current membership.
type GroupDTO struct {
	Name        string          `json:"name"`
	Connections []ConnectionDTO `json:"connections"`
}

// UserInfo is what the dispatcher needs to know about a directory user.
type UserInfo struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

func toMessageDTO(m *message.Message) MessageDTO {
	return MessageDTO{
		ID:                m.ID,
		SenderUsername:    m.SenderUsername,
		RecipientUsername: m.RecipientUsername,
		Content:           m.Content,
		SentAt:            m.SentAt,
		ReadAt:            m.ReadAt,
	}
}

func toMessageDTOs(msgs []message.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, toMessageDTO(&msgs[i]))
	}
	return out
}

func toGroupDTO(g *message.Group) GroupDTO {
	dto := GroupDTO{
		Name:        g.Name,
		Connections: make([]ConnectionDTO, 0, len(g.Connections)),
	}
	for _, c := range g.Connections {
		dto.Connections = append(dto.Connections, ConnectionDTO{
			ConnectionID: c.ConnectionID,
			Username:     c.Username,
		})
	}
	return dto
}

// PageParams selects one page of a message listing.
type PageParams struct {
	PageNumber int
	PageSize   int
}

// Normalize clamps page parameters to sane bounds.
func (p PageParams) Normalize() PageParams {
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > 50 {
		p.PageSize = 50
	}
	return p
}

// Page is one page of messages plus the pagination facts a client needs to
// fetch the rest.
type Page struct {
	Items      []MessageDTO `json:"items"`
	PageNumber int          `json:"page_number"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}
