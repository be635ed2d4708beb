package messaging

import "errors"

var (
	// ErrSelfMessage is returned when a user tries to message themselves.
	ErrSelfMessage = errors.New("you cannot send messages to yourself")
	// ErrEmptyRecipient is returned when no recipient username is given.
	ErrEmptyRecipient = errors.New("recipient username is required")
	// ErrEmptyContent is returned when the message body is empty.
	ErrEmptyContent = errors.New("message content is required")
	// ErrContentTooLong is returned when the message body exceeds the limit.
	ErrContentTooLong = errors.New("message content exceeds maximum length")
	// ErrRecipientNotFound is returned when the recipient is unknown to the
	// user directory.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrMessageNotFound is returned when a message id does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotParticipant is returned when a user acts on a message they are
	// neither sender nor recipient of.
	ErrNotParticipant = errors.New("not a participant of this message")
	// ErrGroupNotFound is returned when a group lookup misses.
	ErrGroupNotFound = errors.New("group not found")
)

// IsValidation reports whether err is a caller-correctable input error, as
// opposed to a transient persistence failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrSelfMessage) ||
		errors.Is(err, ErrEmptyRecipient) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrContentTooLong)
}
