package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type DownloadHandler struct {
	downloadSvc *service.DownloadService
}

func NewDownloadHandler(downloadSvc *service.DownloadService) *DownloadHandler {
	return &DownloadHandler{downloadSvc: downloadSvc}
}

type RegisterDownloadRequest struct {
	Email         string `json:"email"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}

// Register handles POST /api/downloads, the registered-download flow: the
// visitor leaves an email address before the download and receives a
// confirmation message.
func (h *DownloadHandler) Register(c *fiber.Ctx) error {
	var req RegisterDownloadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if !req.AgreedToTerms {
		return response.BadRequest(c, "terms must be accepted")
	}
	if strings.TrimSpace(req.FileName) == "" {
		return response.BadRequest(c, "file_name is required")
	}

	record, err := h.downloadSvc.Register(&service.RegisterDownloadRequest{
		Email:     req.Email,
		FileName:  req.FileName,
		FilePath:  req.FilePath,
		IPAddress: c.IP(),
		UserAgent: string(c.Request().Header.UserAgent()),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidEmail) {
			return response.BadRequest(c, err.Error())
		}
		return response.InternalError(c, "failed to register download")
	}

	logger.Audit("download_registered", map[string]string{
		"record_id": strconv.FormatInt(record.ID, 10),
		"file_name": record.FileName,
	})

	return response.Success(c, record)
}

// ListByEmail handles GET /api/admin/downloads?email= for the audit view.
func (h *DownloadHandler) ListByEmail(c *fiber.Ctx) error {
	email := normalizeEmail(c.Query("email"))
	if email == "" {
		return response.BadRequest(c, "email query parameter is required")
	}
	if !isValidEmail(email) {
		return response.BadRequest(c, "invalid email format")
	}

	records, err := h.downloadSvc.ListByEmail(email)
	if err != nil {
		return response.InternalError(c, "failed to list downloads")
	}

	return response.Success(c, records)
}
