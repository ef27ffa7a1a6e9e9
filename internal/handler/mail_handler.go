package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/gofiber/fiber/v2"
)

const maxBulkRecipients = 500

type MailHandler struct {
	mailSvc *service.MailService
}

func NewMailHandler(mailSvc *service.MailService) *MailHandler {
	return &MailHandler{mailSvc: mailSvc}
}

type BulkEmailRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
}

func normalizeRecipients(input []string) ([]string, error) {
	seen := make(map[string]struct{})
	normalized := make([]string, 0, len(input))

	for _, raw := range input {
		email := normalizeEmail(raw)
		if email == "" {
			continue
		}
		if !isValidEmail(email) {
			return nil, fmt.Errorf("invalid recipient email: %s", raw)
		}
		if _, exists := seen[email]; exists {
			continue
		}
		seen[email] = struct{}{}
		normalized = append(normalized, email)
	}

	if len(normalized) == 0 {
		return nil, errors.New("at least one recipient is required")
	}
	if len(normalized) > maxBulkRecipients {
		return nil, fmt.Errorf("recipient list exceeds maximum of %d", maxBulkRecipients)
	}

	return normalized, nil
}

// SendBulk handles POST /api/admin/send-bulk-email. Delivery is sequential
// with a pause between messages; the response carries per-batch counts while
// per-recipient outcomes land in email_logs.
func (h *MailHandler) SendBulk(c *fiber.Ctx) error {
	var req BulkEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if strings.TrimSpace(req.Subject) == "" {
		return response.BadRequest(c, "subject is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return response.BadRequest(c, "message is required")
	}

	recipients, err := normalizeRecipients(req.Recipients)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	stats, err := h.mailSvc.SendBulk(recipients, req.Subject, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrNoSMTPConfig) {
			return response.BadRequest(c, "no SMTP configuration found, configure the relay first")
		}
		return response.InternalError(c, "failed to send bulk email")
	}

	RecordEmailBatch(stats.SuccessCount, stats.FailedCount)
	logger.Audit("bulk_email_sent", map[string]string{
		"total":   strconv.Itoa(stats.TotalCount),
		"success": strconv.Itoa(stats.SuccessCount),
		"failed":  strconv.Itoa(stats.FailedCount),
	})

	return response.Success(c, stats)
}
