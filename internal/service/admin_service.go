package service

import (
	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
)

const recentStatsLimit = 10

// AdminService aggregates portal activity for the admin dashboard.
type AdminService struct {
	downloadRepo *repository.DownloadRepository
	emailLogRepo *repository.EmailLogRepository
	fileRepo     *repository.FileRepository
	reportRepo   *repository.ReportRepository
	smtpRepo     *repository.SMTPRepository
}

func NewAdminService(
	downloadRepo *repository.DownloadRepository,
	emailLogRepo *repository.EmailLogRepository,
	fileRepo *repository.FileRepository,
	reportRepo *repository.ReportRepository,
	smtpRepo *repository.SMTPRepository,
) *AdminService {
	return &AdminService{
		downloadRepo: downloadRepo,
		emailLogRepo: emailLogRepo,
		fileRepo:     fileRepo,
		reportRepo:   reportRepo,
		smtpRepo:     smtpRepo,
	}
}

type PortalStats struct {
	Downloads       *models.DownloadStats  `json:"stats"`
	RecentEmailLogs []*models.EmailLog     `json:"recent_email_logs"`
	RootFiles       []*models.UploadedFile `json:"uploaded_files"`
	TotalFiles      int                    `json:"total_files"`
	PendingReports  int                    `json:"pending_reports"`
	SMTPConfigured  bool                   `json:"smtp_configured"`
}

func (s *AdminService) GetStats() (*PortalStats, error) {
	total, err := s.downloadRepo.CountAll()
	if err != nil {
		return nil, err
	}
	unique, err := s.downloadRepo.CountDistinctEmails()
	if err != nil {
		return nil, err
	}
	recent, err := s.downloadRepo.ListRecent(recentStatsLimit)
	if err != nil {
		return nil, err
	}
	emailLogs, err := s.emailLogRepo.ListRecent(recentStatsLimit)
	if err != nil {
		return nil, err
	}
	rootFiles, err := s.fileRepo.ListRoot()
	if err != nil {
		return nil, err
	}
	totalFiles, err := s.fileRepo.CountAll()
	if err != nil {
		return nil, err
	}
	pending, err := s.reportRepo.CountPending()
	if err != nil {
		return nil, err
	}
	activeRelays, err := s.smtpRepo.CountActive()
	if err != nil {
		return nil, err
	}

	return &PortalStats{
		Downloads: &models.DownloadStats{
			TotalDownloads:  total,
			UniqueEmails:    unique,
			RecentDownloads: recent,
		},
		RecentEmailLogs: emailLogs,
		RootFiles:       rootFiles,
		TotalFiles:      totalFiles,
		PendingReports:  pending,
		SMTPConfigured:  activeRelays > 0,
	}, nil
}

func (s *AdminService) GetEmailLogs(limit int) ([]*models.EmailLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.emailLogRepo.ListRecent(limit)
}
