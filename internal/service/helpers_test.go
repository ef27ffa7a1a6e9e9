package service

import (
	"testing"
	"time"

	"github.com/FileGate/FileGate/internal/models"
	"github.com/FileGate/FileGate/internal/repository"
)

func seedActiveLink(t *testing.T, repo *repository.LinkRepository, token, fileID string) *models.DownloadLink {
	t.Helper()

	link := &models.DownloadLink{
		Token:            token,
		FileID:           fileID,
		FileName:         "file.bin",
		OriginalFileName: "file.bin",
		CreatedBy:        "admin",
		CreatedAt:        time.Now(),
		IsActive:         true,
	}
	if err := repo.Create(link); err != nil {
		t.Fatalf("seed link %s: %v", token, err)
	}
	return link
}
