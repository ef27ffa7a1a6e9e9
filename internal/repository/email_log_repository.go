package repository

import (
	"database/sql"
	"time"

	"github.com/FileGate/FileGate/internal/models"
)

type EmailLogRepository struct {
	db *sql.DB
}

func NewEmailLogRepository(db *sql.DB) *EmailLogRepository {
	return &EmailLogRepository{db: db}
}

// LogSent records a successful delivery attempt.
func (r *EmailLogRepository) LogSent(recipient, subject, body string) error {
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO email_logs (recipient_email, subject, body, status, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, recipient, subject, body, models.EmailStatusSent, now, now)
	return err
}

// LogFailed records a failed delivery attempt with the transport error text.
func (r *EmailLogRepository) LogFailed(recipient, subject, errorMessage string) error {
	_, err := r.db.Exec(`
		INSERT INTO email_logs (recipient_email, subject, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, recipient, subject, models.EmailStatusFailed, errorMessage, time.Now())
	return err
}

func (r *EmailLogRepository) ListRecent(limit int) ([]*models.EmailLog, error) {
	rows, err := r.db.Query(`
		SELECT id, recipient_email, COALESCE(subject, ''), COALESCE(body, ''), status, error_message, sent_at, created_at
		FROM email_logs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.EmailLog
	for rows.Next() {
		log := &models.EmailLog{}
		if err := rows.Scan(&log.ID, &log.RecipientEmail, &log.Subject, &log.Body,
			&log.Status, &log.ErrorMessage, &log.SentAt, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func (r *EmailLogRepository) CountByStatus(status string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM email_logs WHERE status = ?`, status).Scan(&count)
	return count, err
}
