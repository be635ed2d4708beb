package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-monolith/mono"

	domain "github.com/example/private-chat-demo/domain/user"
)

var (
	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned when the username is missing or malformed.
	ErrInvalidUsername = errors.New("username must be 2-50 characters")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when the password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

// registerUser handles the account.register service request.
func (m *Module) registerUser(_ context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 2 || len(username) > 50 {
		return RegisterResponse{}, ErrInvalidUsername
	}
	if len(req.Password) < 8 {
		return RegisterResponse{}, ErrWeakPassword
	}
	if len(req.Password) > 72 {
		return RegisterResponse{}, ErrPasswordTooLong
	}

	exists, err := m.repo.UsernameExists(username)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return RegisterResponse{}, ErrUserExists
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = username
	}

	passwordHash, err := m.hasher.Hash(req.Password)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.repo.Create(user); err != nil {
		return RegisterResponse{}, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := m.jwt.GenerateToken(user.Username, user.DisplayName)
	if err != nil {
		return RegisterResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return RegisterResponse{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Token:       token,
		CreatedAt:   user.CreatedAt,
	}, nil
}

// loginUser handles the account.login service request.
func (m *Module) loginUser(_ context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := m.repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResponse{}, ErrInvalidCredentials
		}
		return LoginResponse{}, fmt.Errorf("failed to find user: %w", err)
	}

	if !m.hasher.Verify(req.Password, user.PasswordHash) {
		return LoginResponse{}, ErrInvalidCredentials
	}

	token, err := m.jwt.GenerateToken(user.Username, user.DisplayName)
	if err != nil {
		return LoginResponse{}, fmt.Errorf("failed to generate token: %w", err)
	}

	return LoginResponse{
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Token:       token,
	}, nil
}

// validateToken handles the account.validate-token service request.
func (m *Module) validateToken(_ context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.jwt.ValidateToken(req.Token)
	if err != nil {
		return ValidateTokenResponse{Valid: false, Error: err.Error()}, nil
	}
	return ValidateTokenResponse{
		Valid:       true,
		Username:    claims.Username,
		DisplayName: claims.DisplayName,
	}, nil
}

// resolveUser handles the account.resolve-user service request.
func (m *Module) resolveUser(_ context.Context, req ResolveUserRequest, _ *mono.Msg) (ResolveUserResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := m.repo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ResolveUserResponse{Found: false}, nil
		}
		return ResolveUserResponse{}, fmt.Errorf("failed to find user: %w", err)
	}
	return ResolveUserResponse{
		Found:       true,
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}, nil
}
