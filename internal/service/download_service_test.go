package service

import (
	"errors"
	"testing"
	"time"

	"github.com/FileGate/FileGate/internal/config"
	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/FileGate/FileGate/pkg/testutil"
)

func setupDownloadServiceTest(t *testing.T) (*DownloadService, *MailService, func()) {
	t.Helper()

	db, _, cleanup := testutil.SetupTest(t)

	mailSvc := NewMailService(
		repository.NewSMTPRepository(db),
		repository.NewEmailLogRepository(db),
		&config.Config{Mail: config.MailConfig{SendTimeout: time.Second}},
	)
	downloadSvc := NewDownloadService(repository.NewDownloadRepository(db), mailSvc)
	return downloadSvc, mailSvc, cleanup
}

func TestRegisterDownloadRejectsInvalidEmail(t *testing.T) {
	downloadSvc, _, cleanup := setupDownloadServiceTest(t)
	defer cleanup()

	_, err := downloadSvc.Register(&RegisterDownloadRequest{
		Email:    "not-an-address",
		FileName: "brochure.pdf",
	})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("err = %v, want ErrInvalidEmail", err)
	}
}

// Registration must succeed even when the confirmation email cannot be
// delivered; the failure only lands in email_logs.
func TestRegisterDownloadSurvivesMailFailure(t *testing.T) {
	downloadSvc, _, cleanup := setupDownloadServiceTest(t)
	defer cleanup()

	// No SMTP configuration exists, so the confirmation send fails.
	record, err := downloadSvc.Register(&RegisterDownloadRequest{
		Email:     "Visitor@Example.com",
		FileName:  "brochure.pdf",
		FilePath:  "abc.pdf",
		IPAddress: "203.0.113.9",
		UserAgent: "test-agent",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if record.Email != "visitor@example.com" {
		t.Errorf("email = %q, want lowercased", record.Email)
	}
	if !record.AgreedToTerms {
		t.Error("agreed_to_terms should be recorded")
	}
}

func TestRegisterDownloadSendsConfirmation(t *testing.T) {
	downloadSvc, mailSvc, cleanup := setupDownloadServiceTest(t)
	defer cleanup()

	if err := mailSvc.ReplaceConfig(&models.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		FromEmail: "noreply@example.com",
	}); err != nil {
		t.Fatalf("configure relay: %v", err)
	}

	var sentTo, sentSubject string
	mailSvc.send = func(cfg *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error {
		sentTo = to
		sentSubject = subject
		return nil
	}

	if _, err := downloadSvc.Register(&RegisterDownloadRequest{
		Email:    "visitor@example.com",
		FileName: "brochure.pdf",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if sentTo != "visitor@example.com" {
		t.Errorf("confirmation recipient = %q", sentTo)
	}
	if sentSubject == "" {
		t.Error("confirmation subject should be set")
	}
}

func TestListByEmailNormalizes(t *testing.T) {
	downloadSvc, _, cleanup := setupDownloadServiceTest(t)
	defer cleanup()

	if _, err := downloadSvc.Register(&RegisterDownloadRequest{
		Email:    "CaSe@Example.com",
		FileName: "a.txt",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	records, err := downloadSvc.ListByEmail("case@EXAMPLE.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}
