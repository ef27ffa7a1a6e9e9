package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/FileGate/FileGate/pkg/sanitize"
	"github.com/gofiber/fiber/v2"
)

type LinkHandler struct {
	linkSvc *service.LinkService
}

func NewLinkHandler(linkSvc *service.LinkService) *LinkHandler {
	return &LinkHandler{linkSvc: linkSvc}
}

type CreateLinkRequest struct {
	FileID           string  `json:"file_id"`
	OriginalFileName string  `json:"original_file_name"`
	Description      *string `json:"description"`
	MaxDownloads     *int    `json:"max_downloads"`
	ExpiresAt        *string `json:"expires_at"`
}

// Create handles POST /api/admin/download-links.
func (h *LinkHandler) Create(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.FileID == "" {
		return response.BadRequest(c, "file_id is required")
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil && *req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return response.BadRequest(c, "invalid expires_at format")
		}
		expiresAt = &t
	}

	link, url, err := h.linkSvc.Create(&service.CreateLinkRequest{
		FileID:           req.FileID,
		OriginalFileName: req.OriginalFileName,
		Description:      req.Description,
		MaxDownloads:     req.MaxDownloads,
		ExpiresAt:        expiresAt,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidExpiry),
			errors.Is(err, service.ErrInvalidMaxDown):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrFileNotFound):
			return response.NotFound(c, "file not found")
		default:
			return response.InternalError(c, "failed to create download link")
		}
	}

	RecordLinkIssued()
	logger.Audit("link_issued", map[string]string{
		"token":   link.Token,
		"file_id": link.FileID,
	})

	return response.Success(c, map[string]interface{}{
		"link":         link,
		"download_url": url,
	})
}

// List handles GET /api/admin/download-links.
func (h *LinkHandler) List(c *fiber.Ctx) error {
	links, err := h.linkSvc.ListActive()
	if err != nil {
		return response.InternalError(c, "failed to list download links")
	}

	result := make([]map[string]interface{}, 0, len(links))
	for _, link := range links {
		result = append(result, map[string]interface{}{
			"link":         link,
			"download_url": h.linkSvc.DownloadURL(link.Token),
		})
	}

	return response.Success(c, result)
}

type DeactivateLinkRequest struct {
	Token string `json:"token"`
}

// Deactivate handles DELETE /api/admin/download-links. The token travels in
// the JSON body, not the path.
func (h *LinkHandler) Deactivate(c *fiber.Ctx) error {
	var req DeactivateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	token := req.Token
	if token == "" {
		return response.BadRequest(c, "token is required")
	}

	if err := h.linkSvc.Deactivate(token); err != nil {
		if errors.Is(err, service.ErrLinkNotFound) {
			return response.NotFound(c, "download link not found")
		}
		return response.InternalError(c, "failed to deactivate download link")
	}

	logger.Audit("link_deactivated", map[string]string{
		"token": token,
	})

	return response.Success(c, map[string]string{"message": "download link deactivated"})
}

// Redeem handles GET /api/download/:token and GET /d/:token. On success the
// file is streamed as an attachment; the download counter has already been
// incremented atomically, so a concurrent request past the limit gets 410.
func (h *LinkHandler) Redeem(c *fiber.Ctx) error {
	token := c.Params("token")

	link, filePath, err := h.linkSvc.Redeem(token, c.IP(), string(c.Request().Header.UserAgent()))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkNotFound),
			errors.Is(err, service.ErrFileMissing):
			RecordRedemption("not_found")
			return response.NotFound(c, "download link not found")
		case errors.Is(err, service.ErrLinkInactive),
			errors.Is(err, service.ErrLinkExpired),
			errors.Is(err, service.ErrLinkExhausted):
			RecordRedemption("gone")
			return response.Gone(c, err.Error())
		default:
			RecordRedemption("error")
			return response.InternalError(c, "failed to process download")
		}
	}

	RecordRedemption("served")
	logger.Audit("link_redeemed", map[string]string{
		"token": token,
		"count": strconv.Itoa(link.DownloadCount),
		"ip":    c.IP(),
	})

	safeName := sanitize.SanitizeForHeader(link.OriginalFileName)
	c.Set("Content-Disposition", "attachment; filename=\""+safeName+"\"")
	c.Set("Content-Type", "application/octet-stream")

	return c.SendFile(filePath)
}
