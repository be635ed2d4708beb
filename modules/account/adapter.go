package account

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/private-chat-demo/domain/user"
)

// AuthPort is how other modules validate tokens and look up directory
// entries without reaching into the account module's internals.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	ResolveUser(ctx context.Context, username string) (*ResolveUserResponse, error)
}

// Adapter implements AuthPort over the account service container.
type Adapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*Adapter)(nil)

// NewAdapter creates a new account adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	if container == nil {
		panic("account: ServiceContainer is nil")
	}
	return &Adapter{container: container}
}

// Register creates a new account and returns a signed token.
func (a *Adapter) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var resp RegisterResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRegister,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates an existing account and returns a signed token.
func (a *Adapter) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogin,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateToken validates an access token and returns its claims.
func (a *Adapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceValidateToken,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}
	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}
	return &domain.Claims{
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
	}, nil
}

// ResolveUser looks up a username in the directory.
func (a *Adapter) ResolveUser(ctx context.Context, username string) (*ResolveUserResponse, error) {
	req := ResolveUserRequest{Username: username}
	var resp ResolveUserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceResolveUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("resolve-user request failed: %w", err)
	}
	return &resp, nil
}
