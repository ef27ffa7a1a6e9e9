package repository

import (
	"database/sql"
	"time"

	"github.com/FileGate/FileGate/internal/models"
)

type SMTPRepository struct {
	db *sql.DB
}

func NewSMTPRepository(db *sql.DB) *SMTPRepository {
	return &SMTPRepository{db: db}
}

// GetActive returns the single active SMTP configuration, or sql.ErrNoRows
// when none was configured yet.
func (r *SMTPRepository) GetActive() (*models.SMTPConfig, error) {
	cfg := &models.SMTPConfig{}
	var active int
	err := r.db.QueryRow(`
		SELECT id, host, port, username, password, from_email, active, created_at, updated_at
		FROM smtp_config WHERE active = 1 LIMIT 1
	`).Scan(&cfg.ID, &cfg.Host, &cfg.Port, &cfg.Username, &cfg.Password, &cfg.FromEmail,
		&active, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	cfg.Active = active == 1
	return cfg, nil
}

// ReplaceActive deactivates every previous configuration and inserts the new
// one as the active row. Both statements run in one transaction so a
// concurrent reader never observes zero or two active rows.
func (r *SMTPRepository) ReplaceActive(cfg *models.SMTPConfig) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.Exec(`UPDATE smtp_config SET active = 0, updated_at = ? WHERE active = 1`, now); err != nil {
		return err
	}

	result, err := tx.Exec(`
		INSERT INTO smtp_config (host, port, username, password, from_email, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`, cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail, now, now)
	if err != nil {
		return err
	}

	cfg.ID, _ = result.LastInsertId()
	cfg.Active = true
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	return tx.Commit()
}

func (r *SMTPRepository) CountActive() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM smtp_config WHERE active = 1`).Scan(&count)
	return count, err
}
