package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/example/private-chat-demo/domain/user"
	"github.com/example/private-chat-demo/modules/account"
)

// stubAuthPort returns canned resolve results.
type stubAuthPort struct {
	resolve func(username string) (*account.ResolveUserResponse, error)
}

func (s *stubAuthPort) Register(context.Context, account.RegisterRequest) (*account.RegisterResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthPort) Login(context.Context, account.LoginRequest) (*account.LoginResponse, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthPort) ValidateToken(context.Context, string) (*domain.Claims, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthPort) ResolveUser(_ context.Context, username string) (*account.ResolveUserResponse, error) {
	return s.resolve(username)
}

func TestAccountDirectory_Resolve(t *testing.T) {
	dir := NewAccountDirectory(&stubAuthPort{
		resolve: func(username string) (*account.ResolveUserResponse, error) {
			if username != "alice" {
				return &account.ResolveUserResponse{Found: false}, nil
			}
			return &account.ResolveUserResponse{
				Found:       true,
				Username:    "alice",
				DisplayName: "Alice",
			}, nil
		},
	})

	info, err := dir.Resolve(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "Alice", info.DisplayName)
}

func TestAccountDirectory_Miss(t *testing.T) {
	dir := NewAccountDirectory(&stubAuthPort{
		resolve: func(string) (*account.ResolveUserResponse, error) {
			return &account.ResolveUserResponse{Found: false}, nil
		},
	})

	_, err := dir.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestAccountDirectory_TransportError(t *testing.T) {
	dir := NewAccountDirectory(&stubAuthPort{
		resolve: func(string) (*account.ResolveUserResponse, error) {
			return nil, errors.New("service unavailable")
		},
	})

	_, err := dir.Resolve(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecipientNotFound)
}
