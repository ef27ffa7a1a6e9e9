package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/pkg/testutil"
)

func TestGetActiveWithoutConfig(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	repo := NewSMTPRepository(db)
	if _, err := repo.GetActive(); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestReplaceActiveIsExclusive(t *testing.T) {
	db, _, cleanup := testutil.SetupTest(t)
	defer cleanup()

	repo := NewSMTPRepository(db)

	first := &models.SMTPConfig{
		Host:      "smtp.first.example",
		Port:      587,
		Username:  "mailer",
		Password:  "secret-one",
		FromEmail: "noreply@first.example",
	}
	if err := repo.ReplaceActive(first); err != nil {
		t.Fatalf("save first config: %v", err)
	}

	second := &models.SMTPConfig{
		Host:      "smtp.second.example",
		Port:      465,
		Username:  "mailer",
		Password:  "secret-two",
		FromEmail: "noreply@second.example",
	}
	if err := repo.ReplaceActive(second); err != nil {
		t.Fatalf("save second config: %v", err)
	}

	active, err := repo.GetActive()
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.Host != "smtp.second.example" {
		t.Errorf("active host = %q, want smtp.second.example", active.Host)
	}
	if active.Port != 465 {
		t.Errorf("active port = %d, want 465", active.Port)
	}

	count, err := repo.CountActive()
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if count != 1 {
		t.Errorf("active rows = %d, want exactly 1", count)
	}
}
