package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/private-chat-demo/domain/user"
)

func setupTestModule(t *testing.T) *Module {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return &Module{
		db:     db,
		repo:   NewUserRepository(db),
		hasher: NewPasswordHasher(bcrypt.MinCost),
		jwt: NewJWTManager(JWTConfig{
			SecretKey:     "test-secret",
			TokenDuration: time.Hour,
			Issuer:        "test",
		}),
	}
}

func TestRegisterUser(t *testing.T) {
	m := setupTestModule(t)

	resp, err := m.registerUser(context.Background(), RegisterRequest{
		Username:    "Alice",
		DisplayName: "Alice W",
		Password:    "a strong password",
	}, nil)
	if err != nil {
		t.Fatalf("registerUser() error = %v", err)
	}

	if resp.Username != "alice" {
		t.Errorf("expected lowercased username alice, got %q", resp.Username)
	}
	if resp.DisplayName != "Alice W" {
		t.Errorf("expected display name preserved, got %q", resp.DisplayName)
	}
	if resp.Token == "" {
		t.Error("expected a token on registration")
	}

	// The stored user carries a hash, never the plaintext.
	user, err := m.repo.FindByUsername("alice")
	if err != nil {
		t.Fatalf("FindByUsername() error = %v", err)
	}
	if user.PasswordHash == "a strong password" || user.PasswordHash == "" {
		t.Error("password was not hashed")
	}
}

func TestRegisterUser_Validation(t *testing.T) {
	m := setupTestModule(t)

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"username too short", RegisterRequest{Username: "a", Password: "long enough pw"}, ErrInvalidUsername},
		{"username empty", RegisterRequest{Username: "  ", Password: "long enough pw"}, ErrInvalidUsername},
		{"password too short", RegisterRequest{Username: "alice", Password: "short"}, ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.registerUser(context.Background(), tt.req, nil); !errors.Is(err, tt.wantErr) {
				t.Errorf("registerUser() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterUser_Duplicate(t *testing.T) {
	m := setupTestModule(t)

	req := RegisterRequest{Username: "alice", Password: "a strong password"}
	if _, err := m.registerUser(context.Background(), req, nil); err != nil {
		t.Fatalf("first registerUser() error = %v", err)
	}
	if _, err := m.registerUser(context.Background(), req, nil); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginUser(t *testing.T) {
	m := setupTestModule(t)

	if _, err := m.registerUser(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "a strong password",
	}, nil); err != nil {
		t.Fatalf("registerUser() error = %v", err)
	}

	resp, err := m.loginUser(context.Background(), LoginRequest{
		Username: "ALICE",
		Password: "a strong password",
	}, nil)
	if err != nil {
		t.Fatalf("loginUser() error = %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token on login")
	}

	// Wrong password and unknown user both collapse to the same error.
	if _, err := m.loginUser(context.Background(), LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := m.loginUser(context.Background(), LoginRequest{
		Username: "nobody",
		Password: "whatever",
	}, nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestValidateTokenService(t *testing.T) {
	m := setupTestModule(t)

	reg, err := m.registerUser(context.Background(), RegisterRequest{
		Username: "alice",
		Password: "a strong password",
	}, nil)
	if err != nil {
		t.Fatalf("registerUser() error = %v", err)
	}

	resp, err := m.validateToken(context.Background(), ValidateTokenRequest{Token: reg.Token}, nil)
	if err != nil {
		t.Fatalf("validateToken() error = %v", err)
	}
	if !resp.Valid || resp.Username != "alice" {
		t.Errorf("unexpected validation result: %+v", resp)
	}

	// An invalid token is reported in-band, not as a service error.
	resp, err = m.validateToken(context.Background(), ValidateTokenRequest{Token: "garbage"}, nil)
	if err != nil {
		t.Fatalf("validateToken() error = %v", err)
	}
	if resp.Valid || resp.Error == "" {
		t.Errorf("expected invalid result with reason, got %+v", resp)
	}
}

func TestResolveUserService(t *testing.T) {
	m := setupTestModule(t)

	if _, err := m.registerUser(context.Background(), RegisterRequest{
		Username:    "alice",
		DisplayName: "Alice W",
		Password:    "a strong password",
	}, nil); err != nil {
		t.Fatalf("registerUser() error = %v", err)
	}

	resp, err := m.resolveUser(context.Background(), ResolveUserRequest{Username: "Alice"}, nil)
	if err != nil {
		t.Fatalf("resolveUser() error = %v", err)
	}
	if !resp.Found || resp.Username != "alice" || resp.DisplayName != "Alice W" {
		t.Errorf("unexpected resolve result: %+v", resp)
	}

	// A miss is Found=false, not an error.
	resp, err = m.resolveUser(context.Background(), ResolveUserRequest{Username: "nobody"}, nil)
	if err != nil {
		t.Fatalf("resolveUser() error = %v", err)
	}
	if resp.Found {
		t.Error("expected Found=false for unknown user")
	}
}
