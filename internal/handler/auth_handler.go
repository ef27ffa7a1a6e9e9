package handler

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// emailRegex provides additional validation beyond net/mail
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return emailRegex.MatchString(email)
}

type AuthHandler struct {
	authSvc *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/admin/login. The portal has a single operator
// account, so only a password is exchanged for a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.Password == "" {
		return response.BadRequest(c, "password is required")
	}

	token, expiresAt, err := h.authSvc.Login(req.Password)
	if err != nil {
		RecordAuthFailure("bad_password")
		logger.Audit("admin_login_failed", map[string]string{
			"ip": c.IP(),
		})
		return response.Unauthorized(c, "invalid credentials")
	}

	logger.Audit("admin_login", map[string]string{
		"ip": c.IP(),
	})

	return response.Success(c, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
