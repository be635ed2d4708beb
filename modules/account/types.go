package account

import "time"

// Service names registered in the account module's service container.
const (
	ServiceRegister      = "register"
	ServiceLogin         = "login"
	ServiceValidateToken = "validate-token"
	ServiceResolveUser   = "resolve-user"
)

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// RegisterResponse is the result of a successful registration.
type RegisterResponse struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Token       string    `json:"token"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the result of a successful login.
type LoginResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token"`
}

// ValidateTokenRequest checks an access token.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse carries the claims of a valid token.
type ValidateTokenResponse struct {
	Valid       bool   `json:"valid"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error,omitempty"`
}

// ResolveUserRequest looks up a username in the directory.
type ResolveUserRequest struct {
	Username string `json:"username"`
}

// ResolveUserResponse is the directory entry for a username.
type ResolveUserResponse struct {
	Found       bool   `json:"found"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
