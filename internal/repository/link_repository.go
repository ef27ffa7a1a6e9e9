package repository

import (
	"database/sql"
	"time"

	"github.com/FileGate/FileGate/internal/models"
)

type LinkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

const linkColumns = `id, token, file_id, file_name, original_file_name, description, max_downloads, download_count, expires_at, created_by, created_at, is_active`

func scanLink(row interface{ Scan(...interface{}) error }) (*models.DownloadLink, error) {
	link := &models.DownloadLink{}
	var isActive int
	err := row.Scan(&link.ID, &link.Token, &link.FileID, &link.FileName, &link.OriginalFileName,
		&link.Description, &link.MaxDownloads, &link.DownloadCount, &link.ExpiresAt,
		&link.CreatedBy, &link.CreatedAt, &isActive)
	if err != nil {
		return nil, err
	}
	link.IsActive = isActive == 1
	return link, nil
}

func (r *LinkRepository) Create(link *models.DownloadLink) error {
	var isActive int
	if link.IsActive {
		isActive = 1
	}
	result, err := r.db.Exec(`
		INSERT INTO download_links (token, file_id, file_name, original_file_name, description, max_downloads, download_count, expires_at, created_by, created_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, link.Token, link.FileID, link.FileName, link.OriginalFileName, link.Description,
		link.MaxDownloads, link.DownloadCount, link.ExpiresAt, link.CreatedBy, link.CreatedAt, isActive)
	if err != nil {
		return err
	}
	link.ID, _ = result.LastInsertId()
	return nil
}

func (r *LinkRepository) GetByToken(token string) (*models.DownloadLink, error) {
	return scanLink(r.db.QueryRow(`
		SELECT `+linkColumns+` FROM download_links WHERE token = ?
	`, token))
}

func (r *LinkRepository) ListActive() ([]*models.DownloadLink, error) {
	rows, err := r.db.Query(`
		SELECT ` + linkColumns + ` FROM download_links
		WHERE is_active = 1 ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*models.DownloadLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// RedeemAtomic performs the conditional increment and the audit-trail insert
// in a single transaction. The UPDATE re-checks is_active, expiry and the
// download limit so two concurrent redemptions near max_downloads can never
// both pass a stale check-then-increment. Returns false when the row no
// longer qualifies.
func (r *LinkRepository) RedeemAtomic(token string, record *models.DownloadRecord, now time.Time) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE download_links SET download_count = download_count + 1
		WHERE token = ? AND is_active = 1
		AND (max_downloads IS NULL OR download_count < max_downloads)
		AND (expires_at IS NULL OR expires_at > ?)
	`, token, now)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		INSERT INTO downloads (email, file_path, file_name, ip_address, user_agent, agreed_to_terms, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`, record.Email, record.FilePath, record.FileName, record.IPAddress, record.UserAgent, record.CreatedAt); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// Deactivate soft-deletes a link. The row is kept for the audit trail and the
// token stays permanently inert.
func (r *LinkRepository) Deactivate(token string) error {
	_, err := r.db.Exec(`UPDATE download_links SET is_active = 0 WHERE token = ?`, token)
	return err
}

// DeactivateByFileIDs soft-deactivates every active link pointing at the
// given files and reports how many links were affected. Used when the admin
// deletes a file so its links stop resolving but remain auditable.
func (r *LinkRepository) DeactivateByFileIDs(fileIDs []string) (int64, error) {
	if len(fileIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE download_links SET is_active = 0 WHERE file_id = ? AND is_active = 1`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var total int64
	for _, id := range fileIDs {
		result, err := stmt.Exec(id)
		if err != nil {
			return 0, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, tx.Commit()
}
