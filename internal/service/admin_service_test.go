package service

import (
	"bytes"
	"testing"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/FileGate/FileGate/pkg/testutil"
)

func TestGetStatsAggregatesPortalState(t *testing.T) {
	db, cfg, cleanup := testutil.SetupTest(t)
	defer cleanup()

	fileRepo := repository.NewFileRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	smtpRepo := repository.NewSMTPRepository(db)
	downloadRepo := repository.NewDownloadRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)
	reportRepo := repository.NewReportRepository(db)
	fileSvc := NewFileService(fileRepo, linkRepo, cfg.UploadDir)

	adminSvc := NewAdminService(downloadRepo, emailLogRepo, fileRepo, reportRepo, smtpRepo)

	content := []byte("dashboard fodder")
	if _, err := fileSvc.Register(&RegisterFileRequest{
		FileName: "report.txt",
		FileSize: int64(len(content)),
		Data:     bytes.NewReader(content),
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := fileSvc.CreateFolder("docs", nil); err != nil {
		t.Fatalf("create folder: %v", err)
	}

	stats, err := adminSvc.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 2 {
		t.Errorf("total files = %d, want 2", stats.TotalFiles)
	}
	if stats.SMTPConfigured {
		t.Error("smtp should not be configured yet")
	}
	if stats.PendingReports != 0 {
		t.Errorf("pending reports = %d, want 0", stats.PendingReports)
	}

	if err := smtpRepo.ReplaceActive(&models.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer",
		Password:  "relay-secret",
		FromEmail: "noreply@example.com",
	}); err != nil {
		t.Fatalf("activate relay: %v", err)
	}

	stats, err = adminSvc.GetStats()
	if err != nil {
		t.Fatalf("stats after relay: %v", err)
	}
	if !stats.SMTPConfigured {
		t.Error("smtp should report configured after ReplaceActive")
	}
}
