package repository

import (
	"database/sql"

	"github.com/FileGate/FileGate/internal/models"
)

// DownloadRepository manages the append-only downloads audit trail.
type DownloadRepository struct {
	db *sql.DB
}

func NewDownloadRepository(db *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

const downloadColumns = `id, email, file_path, file_name, ip_address, user_agent, agreed_to_terms, created_at`

func scanDownload(row interface{ Scan(...interface{}) error }) (*models.DownloadRecord, error) {
	rec := &models.DownloadRecord{}
	var agreed int
	var userAgent sql.NullString
	err := row.Scan(&rec.ID, &rec.Email, &rec.FilePath, &rec.FileName, &rec.IPAddress,
		&userAgent, &agreed, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.UserAgent = userAgent.String
	rec.AgreedToTerms = agreed == 1
	return rec, nil
}

func (r *DownloadRepository) Create(rec *models.DownloadRecord) error {
	agreed := 0
	if rec.AgreedToTerms {
		agreed = 1
	}
	result, err := r.db.Exec(`
		INSERT INTO downloads (email, file_path, file_name, ip_address, user_agent, agreed_to_terms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.Email, rec.FilePath, rec.FileName, rec.IPAddress, rec.UserAgent, agreed, rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.ID, _ = result.LastInsertId()
	return nil
}

func (r *DownloadRepository) ListByEmail(email string) ([]*models.DownloadRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+downloadColumns+` FROM downloads
		WHERE email = ? ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.DownloadRecord
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *DownloadRepository) ListRecent(limit int) ([]*models.DownloadRecord, error) {
	rows, err := r.db.Query(`
		SELECT `+downloadColumns+` FROM downloads
		ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.DownloadRecord
	for rows.Next() {
		rec, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *DownloadRepository) CountAll() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM downloads`).Scan(&count)
	return count, err
}

func (r *DownloadRepository) CountDistinctEmails() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(DISTINCT email) FROM downloads`).Scan(&count)
	return count, err
}
