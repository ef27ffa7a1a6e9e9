package handler

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// ErrDatabaseNotInitialized indicates the readiness probe ran before the
// database handle was wired up.
var ErrDatabaseNotInitialized = errors.New("database not initialized")

// HealthHandler handles health check endpoints
type HealthHandler struct {
	db        *sql.DB
	uploadDir string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *sql.DB, uploadDir string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		uploadDir: uploadDir,
	}
}

// Liveness returns basic liveness status (is the server running?)
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness returns readiness status (can the server handle requests?)
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := h.checkDatabase(); err != nil {
		checks["database"] = fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["database"] = fiber.Map{
			"status": "healthy",
		}
	}

	if err := h.checkUploadDir(); err != nil {
		checks["storage"] = fiber.Map{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["storage"] = fiber.Map{
			"status": "healthy",
		}
	}

	status := "ok"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"checks": checks,
	})
}

func (h *HealthHandler) checkDatabase() error {
	if h.db == nil {
		return ErrDatabaseNotInitialized
	}
	return h.db.Ping()
}

// checkUploadDir verifies the upload directory is accessible and writable
func (h *HealthHandler) checkUploadDir() error {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return err
	}

	testFile := filepath.Join(h.uploadDir, ".healthcheck")
	f, err := os.Create(testFile)
	if err != nil {
		return err
	}
	f.Close()

	os.Remove(testFile)
	return nil
}
