package handler

import (
	"strconv"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	adminSvc *service.AdminService
}

func NewAdminHandler(adminSvc *service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// Stats handles GET /api/admin/stats: the dashboard snapshot with download
// totals, recent email logs, root registry entries and pending reports.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.adminSvc.GetStats()
	if err != nil {
		return response.InternalError(c, "failed to load portal stats")
	}
	return response.Success(c, stats)
}

// EmailLogs handles GET /api/admin/email-logs?limit=.
func (h *AdminHandler) EmailLogs(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return response.BadRequest(c, "invalid limit")
		}
		limit = parsed
	}

	logs, err := h.adminSvc.GetEmailLogs(limit)
	if err != nil {
		return response.InternalError(c, "failed to load email logs")
	}
	return response.Success(c, logs)
}
