package messaging

import (
	"context"
	"fmt"

	"github.com/example/private-chat-demo/modules/account"
)

// accountDirectory adapts the account module's service surface to the
// dispatcher's UserDirectory contract.
type accountDirectory struct {
	port account.AuthPort
}

// NewAccountDirectory wraps the account adapter as a UserDirectory.
func NewAccountDirectory(port account.AuthPort) UserDirectory {
	return &accountDirectory{port: port}
}

// Resolve looks up a username; a directory miss maps to
// ErrRecipientNotFound.
func (d *accountDirectory) Resolve(ctx context.Context, username string) (*UserInfo, error) {
	resp, err := d.port.ResolveUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	if !resp.Found {
		return nil, ErrRecipientNotFound
	}
	return &UserInfo{
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
	}, nil
}
