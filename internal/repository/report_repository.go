package repository

import (
	"database/sql"
	"time"

	"github.com/FileGate/FileGate/internal/models"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, download_token, file_name, reporter_email, reason, description, status, notes, created_at, resolved_at`

func scanReport(row interface{ Scan(...interface{}) error }) (*models.FileReport, error) {
	report := &models.FileReport{}
	err := row.Scan(&report.ID, &report.DownloadToken, &report.FileName, &report.ReporterEmail,
		&report.Reason, &report.Description, &report.Status, &report.Notes,
		&report.CreatedAt, &report.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ReportRepository) Create(report *models.FileReport) error {
	result, err := r.db.Exec(`
		INSERT INTO file_reports (download_token, file_name, reporter_email, reason, description, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, report.DownloadToken, report.FileName, report.ReporterEmail, report.Reason,
		report.Description, models.ReportStatusPending, report.CreatedAt)
	if err != nil {
		return err
	}
	report.ID, _ = result.LastInsertId()
	report.Status = models.ReportStatusPending
	return nil
}

func (r *ReportRepository) GetByID(id int64) (*models.FileReport, error) {
	return scanReport(r.db.QueryRow(`
		SELECT `+reportColumns+` FROM file_reports WHERE id = ?
	`, id))
}

func (r *ReportRepository) ListPending() ([]*models.FileReport, error) {
	rows, err := r.db.Query(`
		SELECT `+reportColumns+` FROM file_reports
		WHERE status = ? ORDER BY created_at DESC
	`, models.ReportStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.FileReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// ResolveIfPending transitions a report out of pending and stamps the
// resolution time. The WHERE clause guards the state machine: a report that
// was already resolved or dismissed is left untouched and false is returned.
func (r *ReportRepository) ResolveIfPending(id int64, status string, notes *string, now time.Time) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE file_reports SET status = ?, notes = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, status, notes, now, id, models.ReportStatusPending)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *ReportRepository) CountPending() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM file_reports WHERE status = ?`, models.ReportStatusPending).Scan(&count)
	return count, err
}
