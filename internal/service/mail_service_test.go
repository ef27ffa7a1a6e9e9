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

type mailServiceTestEnv struct {
	mailSvc  *MailService
	logRepo  *repository.EmailLogRepository
	smtpRepo *repository.SMTPRepository
}

func setupMailServiceTest(t *testing.T) (*mailServiceTestEnv, func()) {
	t.Helper()

	db, _, cleanup := testutil.SetupTest(t)

	smtpRepo := repository.NewSMTPRepository(db)
	logRepo := repository.NewEmailLogRepository(db)
	mailSvc := NewMailService(smtpRepo, logRepo, &config.Config{
		Mail: config.MailConfig{
			BulkSendDelay: time.Millisecond,
			SendTimeout:   time.Second,
		},
	})

	return &mailServiceTestEnv{
		mailSvc:  mailSvc,
		logRepo:  logRepo,
		smtpRepo: smtpRepo,
	}, cleanup
}

func activateRelay(t *testing.T, env *mailServiceTestEnv) {
	t.Helper()

	if err := env.smtpRepo.ReplaceActive(&models.SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer",
		Password:  "relay-secret",
		FromEmail: "noreply@example.com",
	}); err != nil {
		t.Fatalf("activate relay: %v", err)
	}
}

func TestSendLogsOutcome(t *testing.T) {
	env, cleanup := setupMailServiceTest(t)
	defer cleanup()
	activateRelay(t, env)

	env.mailSvc.send = func(cfg *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error {
		if cfg.Host != "smtp.example.com" {
			t.Errorf("relay host = %q", cfg.Host)
		}
		return nil
	}

	if err := env.mailSvc.Send("alice@example.com", "hello", "<p>hi</p>"); err != nil {
		t.Fatalf("send: %v", err)
	}

	sent, err := env.logRepo.CountByStatus(models.EmailStatusSent)
	if err != nil {
		t.Fatalf("count sent: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent logs = %d, want 1", sent)
	}
}

func TestSendTransportFailureIsLogged(t *testing.T) {
	env, cleanup := setupMailServiceTest(t)
	defer cleanup()
	activateRelay(t, env)

	env.mailSvc.send = func(cfg *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error {
		return errors.New("connection refused")
	}

	if err := env.mailSvc.Send("bob@example.com", "hello", "<p>hi</p>"); err == nil {
		t.Fatal("expected transport error")
	}

	failed, err := env.logRepo.CountByStatus(models.EmailStatusFailed)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if failed != 1 {
		t.Errorf("failed logs = %d, want 1", failed)
	}
}

func TestSendBulkFailsFastWithoutRelay(t *testing.T) {
	env, cleanup := setupMailServiceTest(t)
	defer cleanup()

	called := false
	env.mailSvc.send = func(cfg *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error {
		called = true
		return nil
	}

	_, err := env.mailSvc.SendBulk([]string{"a@example.com", "b@example.com"}, "subject", "body")
	if !errors.Is(err, ErrNoSMTPConfig) {
		t.Errorf("err = %v, want ErrNoSMTPConfig", err)
	}
	if called {
		t.Error("no message should be attempted without a relay")
	}
}

func TestSendBulkCountsPerRecipientOutcomes(t *testing.T) {
	env, cleanup := setupMailServiceTest(t)
	defer cleanup()
	activateRelay(t, env)

	env.mailSvc.send = func(cfg *models.SMTPConfig, to, subject, htmlBody string, timeout time.Duration) error {
		if to == "broken@example.com" {
			return errors.New("mailbox unavailable")
		}
		return nil
	}

	stats, err := env.mailSvc.SendBulk(
		[]string{"ok@example.com", "broken@example.com", "fine@example.com"},
		"newsletter", "<p>news</p>",
	)
	if err != nil {
		t.Fatalf("send bulk: %v", err)
	}

	if stats.TotalCount != 3 || stats.SuccessCount != 2 || stats.FailedCount != 1 {
		t.Errorf("stats = %+v, want total 3, success 2, failed 1", stats)
	}

	sent, _ := env.logRepo.CountByStatus(models.EmailStatusSent)
	failed, _ := env.logRepo.CountByStatus(models.EmailStatusFailed)
	if sent != 2 || failed != 1 {
		t.Errorf("logs sent/failed = %d/%d, want 2/1", sent, failed)
	}
}

func TestReplaceConfigRoundtrip(t *testing.T) {
	env, cleanup := setupMailServiceTest(t)
	defer cleanup()

	if _, err := env.mailSvc.ActiveConfig(); !errors.Is(err, ErrNoSMTPConfig) {
		t.Errorf("err = %v, want ErrNoSMTPConfig", err)
	}

	activateRelay(t, env)

	cfg, err := env.mailSvc.ActiveConfig()
	if err != nil {
		t.Fatalf("active config: %v", err)
	}
	if cfg.Host != "smtp.example.com" || !cfg.Active {
		t.Errorf("active config = %+v", cfg)
	}
}
