package messaging

import "github.com/go-monolith/mono/pkg/helper"

// GroupUpdatedEvent is published when a connection joins or leaves a group.
type GroupUpdatedEvent struct {
	Group GroupDTO `json:"group"`
}

// NewMessageEvent is published after a message commits, for fan-out to
// every connection currently joined to the group.
type NewMessageEvent struct {
	Group   string     `json:"group"`
	Message MessageDTO `json:"message"`
}

// NewMessageNotificationEvent is published when the recipient is online but
// not viewing the conversation. It is addressed to specific connection ids
// and deliberately carries no message content.
type NewMessageNotificationEvent struct {
	ConnectionIDs     []string `json:"connection_ids"`
	SenderUsername    string   `json:"sender_username"`
	SenderDisplayName string   `json:"sender_display_name"`
}

// Event definitions for the messaging module.
var (
	// GroupUpdatedV1 announces a group's current membership.
	GroupUpdatedV1 = helper.EventDefinition[GroupUpdatedEvent](
		"messaging",
		"GroupUpdated",
		"v1",
	)

	// NewMessageV1 carries one committed message to its group.
	NewMessageV1 = helper.EventDefinition[NewMessageEvent](
		"messaging",
		"NewMessage",
		"v1",
	)

	// NewMessageNotificationV1 nudges a recipient who is online elsewhere.
	NewMessageNotificationV1 = helper.EventDefinition[NewMessageNotificationEvent](
		"messaging",
		"NewMessageNotification",
		"v1",
	)
)
