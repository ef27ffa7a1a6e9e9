package service

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/FileGate/FileGate/internal/config"
	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrLinkNotFound   = errors.New("download link not found")
	ErrLinkInactive   = errors.New("download link is no longer active")
	ErrLinkExpired    = errors.New("download link has expired")
	ErrLinkExhausted  = errors.New("download limit reached")
	ErrFileMissing    = errors.New("file is missing from storage")
	ErrInvalidExpiry  = errors.New("expires_at must be in the future")
	ErrInvalidMaxDown = errors.New("max_downloads must be greater than zero")
)

const tokenCreateAttempts = 3

type LinkService struct {
	linkRepo *repository.LinkRepository
	fileRepo *repository.FileRepository
	fileSvc  *FileService
	config   *config.Config
}

func NewLinkService(
	linkRepo *repository.LinkRepository,
	fileRepo *repository.FileRepository,
	fileSvc *FileService,
	cfg *config.Config,
) *LinkService {
	return &LinkService{
		linkRepo: linkRepo,
		fileRepo: fileRepo,
		fileSvc:  fileSvc,
		config:   cfg,
	}
}

// generateToken returns a URL-safe token with 128 bits of entropy from the
// system CSPRNG.
func generateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

type CreateLinkRequest struct {
	FileID           string
	OriginalFileName string
	Description      *string
	MaxDownloads     *int
	ExpiresAt        *time.Time
}

// Create issues a new tokenized download link for a registered file. A token
// collision on the UNIQUE constraint is treated as transient and retried
// with a fresh token.
func (s *LinkService) Create(req *CreateLinkRequest) (*models.DownloadLink, string, error) {
	if req.MaxDownloads != nil && *req.MaxDownloads <= 0 {
		return nil, "", ErrInvalidMaxDown
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		return nil, "", ErrInvalidExpiry
	}

	file, err := s.fileRepo.GetByFileID(req.FileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrFileNotFound
		}
		return nil, "", err
	}

	originalName := req.OriginalFileName
	if originalName == "" {
		originalName = file.FileName
	}

	var lastErr error
	for attempt := 0; attempt < tokenCreateAttempts; attempt++ {
		token, err := generateToken()
		if err != nil {
			return nil, "", fmt.Errorf("generate link token: %w", err)
		}

		link := &models.DownloadLink{
			Token:            token,
			FileID:           req.FileID,
			FileName:         file.FileName,
			OriginalFileName: originalName,
			Description:      req.Description,
			MaxDownloads:     req.MaxDownloads,
			DownloadCount:    0,
			ExpiresAt:        req.ExpiresAt,
			CreatedBy:        "admin",
			CreatedAt:        time.Now(),
			IsActive:         true,
		}

		if err := s.linkRepo.Create(link); err != nil {
			if isUniqueViolation(err) {
				lastErr = err
				continue
			}
			return nil, "", err
		}

		return link, s.DownloadURL(token), nil
	}

	return nil, "", fmt.Errorf("create link after %d attempts: %w", tokenCreateAttempts, lastErr)
}

// DownloadURL builds the fully-qualified redemption URL for a token.
func (s *LinkService) DownloadURL(token string) string {
	return s.config.Server.PublicBaseURL + "/api/download/" + token
}

func (s *LinkService) ListActive() ([]*models.DownloadLink, error) {
	return s.linkRepo.ListActive()
}

// Deactivate soft-deletes a link. Deactivating an already-inactive token is
// a no-op.
func (s *LinkService) Deactivate(token string) error {
	if _, err := s.linkRepo.GetByToken(token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrLinkNotFound
		}
		return err
	}
	return s.linkRepo.Deactivate(token)
}

// Redeem validates a token and, when every check passes, atomically
// increments the download counter and appends the audit record. It returns
// the link together with the absolute path of the file to stream. Every
// failure branch leaves the counter and the audit trail untouched.
func (s *LinkService) Redeem(token, ip, userAgent string) (*models.DownloadLink, string, error) {
	link, err := s.linkRepo.GetByToken(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrLinkNotFound
		}
		return nil, "", err
	}

	now := time.Now()
	if !link.IsActive {
		return nil, "", ErrLinkInactive
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(now) {
		return nil, "", ErrLinkExpired
	}
	if link.MaxDownloads != nil && link.DownloadCount >= *link.MaxDownloads {
		return nil, "", ErrLinkExhausted
	}

	file, err := s.fileRepo.GetByFileID(link.FileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrFileMissing
		}
		return nil, "", err
	}

	filePath := s.fileSvc.PhysicalPath(file)
	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrFileMissing
		}
		return nil, "", err
	}

	record := &models.DownloadRecord{
		Email:         "public",
		FilePath:      file.FilePath,
		FileName:      link.OriginalFileName,
		IPAddress:     ip,
		UserAgent:     userAgent,
		AgreedToTerms: true,
		CreatedAt:     now,
	}

	// The conditional UPDATE re-runs the limit checks, so a concurrent
	// redemption that won the race flips this to disallowed.
	allowed, err := s.linkRepo.RedeemAtomic(token, record, now)
	if err != nil {
		return nil, "", fmt.Errorf("record redemption: %w", err)
	}
	if !allowed {
		return nil, "", ErrLinkExhausted
	}

	link.DownloadCount++
	return link, filePath, nil
}
