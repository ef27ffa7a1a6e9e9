package service

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxUploadSize is the hard ceiling for a single uploaded file.
const MaxUploadSize = 500 * 1024 * 1024 // 500 MiB

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrFileTooLarge      = errors.New("file exceeds the maximum allowed size of 500 MiB")
	ErrParentNotFound    = errors.New("parent folder not found")
	ErrParentNotAFolder  = errors.New("parent is not a folder")
	ErrFolderNameMissing = errors.New("folder name is required")
)

type FileService struct {
	fileRepo  *repository.FileRepository
	linkRepo  *repository.LinkRepository
	uploadDir string
}

func NewFileService(fileRepo *repository.FileRepository, linkRepo *repository.LinkRepository, uploadDir string) *FileService {
	return &FileService{
		fileRepo:  fileRepo,
		linkRepo:  linkRepo,
		uploadDir: uploadDir,
	}
}

type RegisterFileRequest struct {
	FileName       string
	FileSize       int64
	ParentFolderID *string
	Data           io.Reader
}

// sniffSize is the number of leading bytes read for MIME-type detection.
// 3072 bytes is sufficient for the mimetype library to identify all
// supported formats.
const sniffSize = 3072

// detectMimeType sniffs the content type from the leading bytes of the
// upload stream and returns a reader that replays the sniffed prefix
// followed by the remaining data.
func detectMimeType(data io.Reader) (string, io.Reader, error) {
	buf := make([]byte, sniffSize)
	n, err := io.ReadAtLeast(data, buf, 1)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("read upload header for MIME sniff: %w", err)
	}
	buf = buf[:n]

	detected := mimetype.Detect(buf)
	return detected.String(), io.MultiReader(bytes.NewReader(buf), data), nil
}

func (s *FileService) validateParent(parentFolderID *string) error {
	if parentFolderID == nil {
		return nil
	}
	parent, err := s.fileRepo.GetByFileID(*parentFolderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrParentNotFound
		}
		return err
	}
	if !parent.IsFolder {
		return ErrParentNotAFolder
	}
	return nil
}

// Register stores the uploaded bytes under the upload directory and creates
// the registry row. The physical name is a server-generated UUID plus the
// original extension, so client-supplied names never reach the filesystem.
func (s *FileService) Register(req *RegisterFileRequest) (*models.UploadedFile, error) {
	if req.FileSize > MaxUploadSize {
		return nil, ErrFileTooLarge
	}
	if err := s.validateParent(req.ParentFolderID); err != nil {
		return nil, err
	}

	mimeType, data, err := detectMimeType(req.Data)
	if err != nil {
		return nil, err
	}

	fileID := uuid.New().String()
	physicalName := fileID + filepath.Ext(req.FileName)
	filePath := filepath.Join(s.uploadDir, physicalName)

	if err := os.MkdirAll(s.uploadDir, 0750); err != nil {
		return nil, err
	}

	// #nosec G304 -- filePath is built from trusted uploadDir and a server-generated UUID filename.
	out, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	written, err := io.Copy(out, data)
	if err != nil {
		removeErr := removeIfExists(filePath)
		if removeErr != nil {
			return nil, fmt.Errorf("write uploaded file: %w (cleanup failed: %v)", err, removeErr)
		}
		return nil, err
	}

	now := time.Now()
	record := &models.UploadedFile{
		FileID:         fileID,
		FileName:       req.FileName,
		FilePath:       physicalName,
		FileSize:       written,
		MimeType:       mimeType,
		IsFolder:       false,
		ParentFolderID: req.ParentFolderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.fileRepo.Create(record); err != nil {
		removeErr := removeIfExists(filePath)
		if removeErr != nil {
			return nil, fmt.Errorf("persist file metadata: %w (cleanup failed: %v)", err, removeErr)
		}
		return nil, err
	}

	return record, nil
}

// CreateFolder makes the physical directory and registers it in the file
// hierarchy.
func (s *FileService) CreateFolder(name string, parentFolderID *string) (*models.UploadedFile, error) {
	if name == "" {
		return nil, ErrFolderNameMissing
	}
	if err := s.validateParent(parentFolderID); err != nil {
		return nil, err
	}

	folderID := uuid.New().String()
	if err := os.MkdirAll(filepath.Join(s.uploadDir, folderID), 0750); err != nil {
		return nil, err
	}

	now := time.Now()
	record := &models.UploadedFile{
		FileID:         folderID,
		FileName:       name,
		FilePath:       folderID,
		IsFolder:       true,
		MimeType:       "inode/directory",
		ParentFolderID: parentFolderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.fileRepo.Create(record); err != nil {
		if removeErr := os.Remove(filepath.Join(s.uploadDir, folderID)); removeErr != nil && !os.IsNotExist(removeErr) {
			return nil, fmt.Errorf("persist folder metadata: %w (cleanup failed: %v)", err, removeErr)
		}
		return nil, err
	}

	return record, nil
}

func (s *FileService) List(parentFolderID *string) ([]*models.UploadedFile, error) {
	return s.fileRepo.ListByParent(parentFolderID)
}

func (s *FileService) GetByFileID(fileID string) (*models.UploadedFile, error) {
	file, err := s.fileRepo.GetByFileID(fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

// PhysicalPath resolves a registry row to its location on disk.
func (s *FileService) PhysicalPath(file *models.UploadedFile) string {
	return filepath.Join(s.uploadDir, file.FilePath)
}

// Delete removes a file or folder (recursively) from disk and the registry,
// and soft-deactivates every active download link that referenced the removed
// entries. Physical artifacts go first and the registry rows only after every
// removal succeeded, in one transaction, so a disk failure aborts with all
// rows still in place and the call can simply be retried (physical removal
// tolerates already-missing artifacts). Returns the number of deactivated
// links.
func (s *FileService) Delete(fileID string) (int64, error) {
	root, err := s.fileRepo.GetByFileID(fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrFileNotFound
		}
		return 0, err
	}

	nodes, err := s.collectSubtree(root)
	if err != nil {
		return 0, err
	}

	// Children come before their parent in the slice, so the walk never
	// removes a folder that still has registered children on disk.
	fileIDs := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if err := s.removePhysical(node); err != nil {
			return 0, fmt.Errorf("remove %q from disk: %w", node.FileName, err)
		}
		fileIDs = append(fileIDs, node.FileID)
	}

	deactivated, err := s.linkRepo.DeactivateByFileIDs(fileIDs)
	if err != nil {
		return 0, fmt.Errorf("deactivate links for %q: %w", root.FileName, err)
	}

	if err := s.fileRepo.DeleteMany(fileIDs); err != nil {
		return deactivated, fmt.Errorf("delete registry rows for %q: %w", root.FileName, err)
	}

	return deactivated, nil
}

// collectSubtree returns the node and all of its descendants, deepest first.
func (s *FileService) collectSubtree(root *models.UploadedFile) ([]*models.UploadedFile, error) {
	var nodes []*models.UploadedFile
	var walk func(node *models.UploadedFile) error
	walk = func(node *models.UploadedFile) error {
		if node.IsFolder {
			children, err := s.fileRepo.ListByParent(&node.FileID)
			if err != nil {
				return err
			}
			for _, child := range children {
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		nodes = append(nodes, node)
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *FileService) removePhysical(node *models.UploadedFile) error {
	path := s.PhysicalPath(node)
	if node.IsFolder {
		return os.RemoveAll(path)
	}
	return removeIfExists(path)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
