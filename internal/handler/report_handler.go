package handler

import (
	"errors"
	"strconv"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reportSvc *service.ReportService
}

func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

type SubmitReportRequest struct {
	DownloadToken string  `json:"download_token"`
	FileName      string  `json:"file_name"`
	ReporterEmail string  `json:"reporter_email"`
	Reason        string  `json:"reason"`
	Description   *string `json:"description"`
}

// Submit handles POST /api/admin/file-reports. Despite the path prefix this
// is the public abuse-report endpoint and carries no auth.
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	var req SubmitReportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if req.DownloadToken == "" {
		return response.BadRequest(c, "download_token is required")
	}

	report, err := h.reportSvc.Submit(&service.SubmitReportRequest{
		DownloadToken: req.DownloadToken,
		FileName:      req.FileName,
		ReporterEmail: req.ReporterEmail,
		Reason:        req.Reason,
		Description:   req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReporterEmail),
			errors.Is(err, service.ErrInvalidReportReason):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrLinkNotFound):
			return response.NotFound(c, "download link not found")
		default:
			return response.InternalError(c, "failed to submit report")
		}
	}

	RecordReportSubmitted()
	logger.Audit("report_submitted", map[string]string{
		"report_id": strconv.FormatInt(report.ID, 10),
		"token":     report.DownloadToken,
		"reason":    report.Reason,
	})

	return response.Success(c, map[string]interface{}{
		"message":   "report submitted",
		"report_id": report.ID,
	})
}

// ListPending handles GET /api/admin/file-reports.
func (h *ReportHandler) ListPending(c *fiber.Ctx) error {
	reports, err := h.reportSvc.ListPending()
	if err != nil {
		return response.InternalError(c, "failed to list reports")
	}
	return response.Success(c, reports)
}

type ResolveReportRequest struct {
	ID     int64   `json:"id"`
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// Resolve handles PATCH /api/admin/file-reports; the report id travels in
// the JSON body. A report can leave the pending state exactly once; a second
// resolution attempt gets 409.
func (h *ReportHandler) Resolve(c *fiber.Ctx) error {
	var req ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.ID <= 0 {
		return response.BadRequest(c, "report id is required")
	}

	report, err := h.reportSvc.Resolve(req.ID, req.Status, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReportStatus):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrReportNotFound):
			return response.NotFound(c, "report not found")
		case errors.Is(err, service.ErrReportAlreadyResolved):
			return response.Conflict(c, err.Error())
		default:
			return response.InternalError(c, "failed to resolve report")
		}
	}

	logger.Audit("report_resolved", map[string]string{
		"report_id": strconv.FormatInt(report.ID, 10),
		"status":    report.Status,
	})

	return response.Success(c, report)
}
