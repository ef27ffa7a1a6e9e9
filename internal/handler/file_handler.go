package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/logger"
	"github.com/FileGate/FileGate/pkg/response"
	"github.com/FileGate/FileGate/pkg/sanitize"
	"github.com/gofiber/fiber/v2"
)

type FileHandler struct {
	fileSvc *service.FileService
}

func NewFileHandler(fileSvc *service.FileService) *FileHandler {
	return &FileHandler{fileSvc: fileSvc}
}

// parentFolderIDFromForm reads the optional parent folder form value.
// An empty string means the registry root.
func parentFolderIDFromValue(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

// Upload handles POST /api/upload. The payload is multipart form data with
// the file under "file" and an optional "parent_folder_id".
func (h *FileHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required")
	}

	fileName := sanitize.SanitizeFilename(fileHeader.Filename)
	if fileName == "" {
		return response.BadRequest(c, "file name is required")
	}

	if fileHeader.Size > service.MaxUploadSize {
		return response.BadRequest(c, service.ErrFileTooLarge.Error())
	}

	data, err := fileHeader.Open()
	if err != nil {
		return response.InternalError(c, "failed to read uploaded file")
	}
	defer data.Close()

	req := &service.RegisterFileRequest{
		FileName:       fileName,
		FileSize:       fileHeader.Size,
		ParentFolderID: parentFolderIDFromValue(c.FormValue("parent_folder_id")),
		Data:           data,
	}

	file, err := h.fileSvc.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrParentNotAFolder):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrParentNotFound):
			return response.NotFound(c, err.Error())
		default:
			return response.InternalError(c, "failed to store uploaded file")
		}
	}

	RecordFileRegistered(float64(file.FileSize))
	logger.Audit("file_registered", map[string]string{
		"file_id":   file.FileID,
		"file_name": file.FileName,
		"size":      strconv.FormatInt(file.FileSize, 10),
	})

	return response.Success(c, file)
}

type CreateFolderRequest struct {
	Name           string  `json:"name"`
	ParentFolderID *string `json:"parent_folder_id"`
}

// CreateFolder handles POST /api/folders.
func (h *FileHandler) CreateFolder(c *fiber.Ctx) error {
	var req CreateFolderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	folder, err := h.fileSvc.CreateFolder(sanitize.SanitizeFilename(req.Name), req.ParentFolderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFolderNameMissing),
			errors.Is(err, service.ErrParentNotAFolder):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, service.ErrParentNotFound):
			return response.NotFound(c, err.Error())
		default:
			return response.InternalError(c, "failed to create folder")
		}
	}

	logger.Audit("folder_created", map[string]string{
		"file_id": folder.FileID,
		"name":    folder.FileName,
	})

	return response.Success(c, folder)
}

// List handles GET /api/files. The optional parentId query parameter scopes
// the listing to one folder; without it the registry root is returned.
func (h *FileHandler) List(c *fiber.Ctx) error {
	parentID := parentFolderIDFromValue(c.Query("parentId"))

	if parentID != nil {
		parent, err := h.fileSvc.GetByFileID(*parentID)
		if err != nil {
			if errors.Is(err, service.ErrFileNotFound) {
				return response.NotFound(c, "parent folder not found")
			}
			return response.InternalError(c, "failed to list files")
		}
		if !parent.IsFolder {
			return response.BadRequest(c, service.ErrParentNotAFolder.Error())
		}
	}

	files, err := h.fileSvc.List(parentID)
	if err != nil {
		return response.InternalError(c, "failed to list files")
	}

	return response.Success(c, files)
}

type DeleteFileRequest struct {
	FileID string `json:"fileId"`
}

// Delete handles DELETE /api/files. Removing a folder removes its whole
// subtree; download links pointing at removed entries are deactivated, not
// erased.
func (h *FileHandler) Delete(c *fiber.Ctx) error {
	var req DeleteFileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.FileID) == "" {
		return response.BadRequest(c, "fileId is required")
	}

	deactivated, err := h.fileSvc.Delete(req.FileID)
	if err != nil {
		if errors.Is(err, service.ErrFileNotFound) {
			return response.NotFound(c, "file not found")
		}
		return response.InternalError(c, "failed to delete file")
	}

	logger.Audit("file_deleted", map[string]string{
		"file_id":           req.FileID,
		"links_deactivated": strconv.FormatInt(deactivated, 10),
	})

	return response.Success(c, map[string]interface{}{
		"message":           "file deleted",
		"links_deactivated": deactivated,
	})
}
