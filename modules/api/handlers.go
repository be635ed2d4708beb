package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/private-chat-demo/domain/message"
	"github.com/example/private-chat-demo/modules/account"
	"github.com/example/private-chat-demo/modules/messaging"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	// Account endpoints
	m.app.Post("/api/account/register", m.register)
	m.app.Post("/api/account/login", m.login)

	// Message endpoints
	messages := m.app.Group("/api/messages", AuthMiddleware(m.authAdapter))
	messages.Post("/", m.sendMessage)
	messages.Get("/", m.listMessages)
	messages.Get("/thread/:username", m.getThread)
	messages.Delete("/:id", m.deleteMessage)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", AuthMiddleware(m.authAdapter), websocket.New(m.handleWebSocket))
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// register handles POST /api/account/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username and password are required",
		})
	}

	resp, err := m.authAdapter.Register(c.UserContext(), account.RegisterRequest{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		return m.handleAccountError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
		Token:       resp.Token,
	})
}

// login handles POST /api/account/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username and password are required",
		})
	}

	resp, err := m.authAdapter.Login(c.UserContext(), account.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return m.handleAccountError(c, err)
	}

	return c.JSON(AuthResponse{
		Username:    resp.Username,
		DisplayName: resp.DisplayName,
		Token:       resp.Token,
	})
}

// sendMessage handles POST /api/messages.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	claims := currentUser(c)

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}

	msg, err := m.messaging.Dispatcher().Dispatch(
		c.UserContext(), claims.Username, req.RecipientUsername, req.Content)
	if err != nil {
		return m.handleMessagingError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// listMessages handles GET /api/messages. The container query parameter
// selects Unread (default), Inbox, or Outbox.
func (m *APIModule) listMessages(c *fiber.Ctx) error {
	claims := currentUser(c)

	container := message.ParseContainer(c.Query("container"))
	params := messaging.PageParams{
		PageNumber: queryInt(c, "pageNumber", 1),
		PageSize:   queryInt(c, "pageSize", 10),
	}

	page, err := m.messaging.List(claims.Username, container, params)
	if err != nil {
		return m.handleMessagingError(c, err)
	}

	header, err := json.Marshal(PaginationHeader{
		CurrentPage:  page.PageNumber,
		ItemsPerPage: page.PageSize,
		TotalItems:   page.TotalCount,
		TotalPages:   page.TotalPages,
	})
	if err == nil {
		c.Set("X-Pagination", string(header))
	}

	return c.JSON(page.Items)
}

// getThread handles GET /api/messages/thread/:username.
func (m *APIModule) getThread(c *fiber.Ctx) error {
	claims := currentUser(c)
	peer := c.Params("username")

	thread, err := m.messaging.Thread(claims.Username, peer)
	if err != nil {
		return m.handleMessagingError(c, err)
	}

	return c.JSON(thread)
}

// deleteMessage handles DELETE /api/messages/:id.
func (m *APIModule) deleteMessage(c *fiber.Ctx) error {
	claims := currentUser(c)
	id := c.Params("id")

	if err := m.messaging.Delete(id, claims.Username); err != nil {
		return m.handleMessagingError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// handleMessagingError maps messaging errors to HTTP responses.
func (m *APIModule) handleMessagingError(c *fiber.Ctx, err error) error {
	switch {
	case messaging.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, messaging.ErrRecipientNotFound),
		errors.Is(err, messaging.ErrMessageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, messaging.ErrNotParticipant):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: err.Error(),
		})
	default:
		slog.Error("Internal error", "module", "api", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

// handleAccountError maps account service errors to HTTP responses.
// Errors cross the service boundary as strings, so matching is on
// known error messages.
func (m *APIModule) handleAccountError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid username or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid username or password",
		})
	case strings.Contains(errStr, "username is taken"):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: "Username is taken",
		})
	case strings.Contains(errStr, "username must be"),
		strings.Contains(errStr, "password must be"):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: errStr,
		})
	default:
		slog.Error("Internal error", "module", "api", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

func queryInt(c *fiber.Ctx, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
