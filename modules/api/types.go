package api

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by both register and login.
type AuthResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}

// SendMessageRequest posts a message to another user.
type SendMessageRequest struct {
	RecipientUsername string `json:"recipientUsername"`
	Content           string `json:"content"`
}

// PaginationHeader is serialized into the X-Pagination response header.
type PaginationHeader struct {
	CurrentPage  int   `json:"currentPage"`
	ItemsPerPage int   `json:"itemsPerPage"`
	TotalItems   int64 `json:"totalItems"`
	TotalPages   int   `json:"totalPages"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// wsInbound is a frame read from a WebSocket client.
type wsInbound struct {
	Type              string `json:"type"`
	RecipientUsername string `json:"recipientUsername,omitempty"`
	Content           string `json:"content,omitempty"`
}
