package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type SMTPHandler struct {
	mailSvc *service.MailService
}

func NewSMTPHandler(mailSvc *service.MailService) *SMTPHandler {
	return &SMTPHandler{mailSvc: mailSvc}
}

// Get handles GET /api/smtp-config. The stored password is never returned;
// the response only indicates whether one is set.
func (h *SMTPHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.mailSvc.ActiveConfig()
	if err != nil {
		if errors.Is(err, service.ErrNoSMTPConfig) {
			return response.NotFound(c, "no SMTP configuration found")
		}
		return response.InternalError(c, "failed to load SMTP configuration")
	}

	return response.Success(c, map[string]interface{}{
		"id":           cfg.ID,
		"host":         cfg.Host,
		"port":         cfg.Port,
		"username":     cfg.Username,
		"from_email":   cfg.FromEmail,
		"has_password": cfg.Password != "",
		"active":       cfg.Active,
		"updated_at":   cfg.UpdatedAt,
	})
}

type SaveSMTPRequest struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
}

// Save handles POST /api/smtp-config. The new row becomes the single active
// configuration; any previous rows are deactivated in the same transaction.
func (h *SMTPHandler) Save(c *fiber.Ctx) error {
	var req SaveSMTPRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.Host = strings.TrimSpace(req.Host)
	if req.Host == "" {
		return response.BadRequest(c, "host is required")
	}
	if req.Port <= 0 || req.Port > 65535 {
		return response.BadRequest(c, "port must be between 1 and 65535")
	}
	req.FromEmail = normalizeEmail(req.FromEmail)
	if !isValidEmail(req.FromEmail) {
		return response.BadRequest(c, "invalid from_email format")
	}

	now := time.Now()
	cfg := &models.SMTPConfig{
		Host:      req.Host,
		Port:      req.Port,
		Username:  strings.TrimSpace(req.Username),
		Password:  req.Password,
		FromEmail: req.FromEmail,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.mailSvc.ReplaceConfig(cfg); err != nil {
		return response.InternalError(c, "failed to save SMTP configuration")
	}

	logger.Audit("smtp_config_replaced", map[string]string{
		"host": cfg.Host,
		"from": cfg.FromEmail,
	})

	return response.Success(c, map[string]string{"message": "SMTP configuration saved"})
}
