package repository

import (
	"database/sql"

	"github.com/FileGate/FileGate/internal/models"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, file_id, file_name, file_path, file_size, mime_type, is_folder, parent_folder_id, created_at, updated_at`

func scanFile(row interface{ Scan(...interface{}) error }) (*models.UploadedFile, error) {
	file := &models.UploadedFile{}
	var isFolder int
	err := row.Scan(&file.ID, &file.FileID, &file.FileName, &file.FilePath, &file.FileSize,
		&file.MimeType, &isFolder, &file.ParentFolderID, &file.CreatedAt, &file.UpdatedAt)
	if err != nil {
		return nil, err
	}
	file.IsFolder = isFolder == 1
	return file, nil
}

func (r *FileRepository) Create(file *models.UploadedFile) error {
	var isFolder int
	if file.IsFolder {
		isFolder = 1
	}
	result, err := r.db.Exec(`
		INSERT INTO uploaded_files (file_id, file_name, file_path, file_size, mime_type, is_folder, parent_folder_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, file.FileID, file.FileName, file.FilePath, file.FileSize, file.MimeType, isFolder, file.ParentFolderID, file.CreatedAt, file.UpdatedAt)
	if err != nil {
		return err
	}
	file.ID, _ = result.LastInsertId()
	return nil
}

func (r *FileRepository) GetByFileID(fileID string) (*models.UploadedFile, error) {
	return scanFile(r.db.QueryRow(`
		SELECT `+fileColumns+` FROM uploaded_files WHERE file_id = ?
	`, fileID))
}

// ListByParent returns the direct children of a folder, or the root listing
// when parentFolderID is nil. Folders sort before files, alphabetical within
// each group.
func (r *FileRepository) ListByParent(parentFolderID *string) ([]*models.UploadedFile, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentFolderID == nil {
		rows, err = r.db.Query(`
			SELECT ` + fileColumns + ` FROM uploaded_files
			WHERE parent_folder_id IS NULL
			ORDER BY is_folder DESC, file_name COLLATE NOCASE ASC
		`)
	} else {
		rows, err = r.db.Query(`
			SELECT `+fileColumns+` FROM uploaded_files
			WHERE parent_folder_id = ?
			ORDER BY is_folder DESC, file_name COLLATE NOCASE ASC
		`, *parentFolderID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []*models.UploadedFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// ListRoot is a convenience wrapper used by the admin stats view.
func (r *FileRepository) ListRoot() ([]*models.UploadedFile, error) {
	return r.ListByParent(nil)
}

// DeleteMany removes a set of registry rows in one transaction, so a
// recursive folder delete never leaves a partially-removed subtree in the
// database. Single-file deletes go through here too, as a one-element set.
func (r *FileRepository) DeleteMany(fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM uploaded_files WHERE file_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range fileIDs {
		if _, err := stmt.Exec(id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *FileRepository) CountAll() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM uploaded_files`).Scan(&count)
	return count, err
}
