package service

import (
	"database/sql"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
)

var (
	ErrReportNotFound        = errors.New("report not found")
	ErrReportAlreadyResolved = errors.New("report has already been resolved")
	ErrInvalidReportReason   = errors.New("invalid report reason")
	ErrInvalidReportStatus   = errors.New("invalid report status")
	ErrInvalidReporterEmail  = errors.New("invalid reporter email")
)

// validReportReasons is the fixed set accepted from the public report form.
var validReportReasons = map[string]bool{
	"virus_malware": true,
	"spam":          true,
	"copyright":     true,
	"illegal":       true,
	"other":         true,
}

type ReportService struct {
	reportRepo *repository.ReportRepository
	linkRepo   *repository.LinkRepository
}

func NewReportService(reportRepo *repository.ReportRepository, linkRepo *repository.LinkRepository) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		linkRepo:   linkRepo,
	}
}

func isValidReporterEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && strings.EqualFold(strings.TrimSpace(addr.Address), strings.TrimSpace(email))
}

type SubmitReportRequest struct {
	DownloadToken string
	FileName      string
	ReporterEmail string
	Reason        string
	Description   *string
}

// Submit validates and records an abuse report against a download token.
func (s *ReportService) Submit(req *SubmitReportRequest) (*models.FileReport, error) {
	email := strings.ToLower(strings.TrimSpace(req.ReporterEmail))
	if !isValidReporterEmail(email) {
		return nil, ErrInvalidReporterEmail
	}
	if !validReportReasons[req.Reason] {
		return nil, ErrInvalidReportReason
	}

	// The report must point at a real token, even an inactive one.
	if _, err := s.linkRepo.GetByToken(req.DownloadToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	report := &models.FileReport{
		DownloadToken: req.DownloadToken,
		FileName:      req.FileName,
		ReporterEmail: email,
		Reason:        req.Reason,
		Description:   req.Description,
		CreatedAt:     time.Now(),
	}

	if err := s.reportRepo.Create(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *ReportService) ListPending() ([]*models.FileReport, error) {
	return s.reportRepo.ListPending()
}

// Resolve transitions a pending report to resolved or dismissed. Resolving a
// report that already left the pending state is rejected so the triage
// history stays unambiguous.
func (s *ReportService) Resolve(id int64, status string, notes *string) (*models.FileReport, error) {
	if status != models.ReportStatusResolved && status != models.ReportStatusDismissed {
		return nil, ErrInvalidReportStatus
	}

	if _, err := s.reportRepo.GetByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}

	updated, err := s.reportRepo.ResolveIfPending(id, status, notes, time.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrReportAlreadyResolved
	}

	return s.reportRepo.GetByID(id)
}
