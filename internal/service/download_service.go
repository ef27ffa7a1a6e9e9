package service

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/FileGate/FileGate/pkg/logger"
)

var ErrInvalidEmail = errors.New("invalid email format")

// DownloadService handles the registered download flow: a visitor leaves an
// email address and accepts the terms before downloading, and the portal
// records the download and sends a confirmation message.
type DownloadService struct {
	downloadRepo *repository.DownloadRepository
	mailSvc      *MailService
}

func NewDownloadService(downloadRepo *repository.DownloadRepository, mailSvc *MailService) *DownloadService {
	return &DownloadService{
		downloadRepo: downloadRepo,
		mailSvc:      mailSvc,
	}
}

func isValidDownloadEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && strings.EqualFold(strings.TrimSpace(addr.Address), strings.TrimSpace(email))
}

type RegisterDownloadRequest struct {
	Email     string
	FileName  string
	FilePath  string
	IPAddress string
	UserAgent string
}

// Register appends an audit row for the download and sends a confirmation
// email. Email delivery is best-effort: a transport failure is logged in
// email_logs but does not fail the registration.
func (s *DownloadService) Register(req *RegisterDownloadRequest) (*models.DownloadRecord, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !isValidDownloadEmail(email) {
		return nil, ErrInvalidEmail
	}

	record := &models.DownloadRecord{
		Email:         email,
		FilePath:      req.FilePath,
		FileName:      req.FileName,
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
		AgreedToTerms: true,
		CreatedAt:     time.Now(),
	}

	if err := s.downloadRepo.Create(record); err != nil {
		return nil, err
	}

	if err := s.mailSvc.SendDownloadConfirmation(email, req.FileName); err != nil {
		logger.Warn().Err(err).Str("email", email).Msg("Failed to send download confirmation")
	}

	return record, nil
}

func (s *DownloadService) ListByEmail(email string) ([]*models.DownloadRecord, error) {
	return s.downloadRepo.ListByEmail(strings.ToLower(strings.TrimSpace(email)))
}
