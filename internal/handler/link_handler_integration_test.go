package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FileGate/FileGate/internal/config"
	"github.com/FileGate/FileGate/internal/repository"
	"github.com/FileGate/FileGate/internal/service"
	"github.com/FileGate/FileGate/pkg/testutil"
	"github.com/gofiber/fiber/v2"
)

type handlerTestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type linkHandlerTestEnv struct {
	app     *fiber.App
	linkSvc *service.LinkService
	fileID  string
	content []byte
}

func setupLinkHandlerTest(t *testing.T) (*linkHandlerTestEnv, func()) {
	t.Helper()

	db, cfg, cleanup := testutil.SetupTest(t)

	fileRepo := repository.NewFileRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	fileSvc := service.NewFileService(fileRepo, linkRepo, cfg.UploadDir)
	linkSvc := service.NewLinkService(linkRepo, fileRepo, fileSvc, &config.Config{
		Server: config.ServerConfig{
			PublicBaseURL: "http://localhost:8080",
		},
	})

	content := []byte("downloadable payload")
	file, err := fileSvc.Register(&service.RegisterFileRequest{
		FileName: "payload.txt",
		FileSize: int64(len(content)),
		Data:     bytes.NewReader(content),
	})
	if err != nil {
		cleanup()
		t.Fatalf("register file: %v", err)
	}

	linkHandler := NewLinkHandler(linkSvc)
	app := fiber.New()
	app.Get("/api/download/:token", linkHandler.Redeem)
	app.Delete("/api/admin/download-links", linkHandler.Deactivate)

	return &linkHandlerTestEnv{
		app:     app,
		linkSvc: linkSvc,
		fileID:  file.FileID,
		content: content,
	}, cleanup
}

func (env *linkHandlerTestEnv) redeem(t *testing.T, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+token, nil)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp
}

func TestRedeemServesFile(t *testing.T) {
	env, cleanup := setupLinkHandlerTest(t)
	defer cleanup()

	link, _, err := env.linkSvc.Create(&service.CreateLinkRequest{
		FileID:           env.fileID,
		OriginalFileName: "Payload File.txt",
	})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	resp := env.redeem(t, link.Token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	disposition := resp.Header.Get("Content-Disposition")
	if disposition != `attachment; filename="Payload File.txt"` {
		t.Errorf("Content-Disposition = %q", disposition)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(body, env.content) {
		t.Error("served body differs from registered content")
	}
}

func TestRedeemUnknownTokenReturns404(t *testing.T) {
	env, cleanup := setupLinkHandlerTest(t)
	defer cleanup()

	resp := env.redeem(t, "never-issued")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	var parsed handlerTestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if parsed.Success {
		t.Error("success should be false")
	}
	if parsed.Error != "download link not found" {
		t.Errorf("error = %q", parsed.Error)
	}
}

func TestRedeemExhaustedTokenReturns410(t *testing.T) {
	env, cleanup := setupLinkHandlerTest(t)
	defer cleanup()

	one := 1
	link, _, err := env.linkSvc.Create(&service.CreateLinkRequest{
		FileID:       env.fileID,
		MaxDownloads: &one,
	})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	first := env.redeem(t, link.Token)
	first.Body.Close()
	if first.StatusCode != http.StatusOK {
		t.Fatalf("first redemption status = %d, want 200", first.StatusCode)
	}

	second := env.redeem(t, link.Token)
	defer second.Body.Close()
	if second.StatusCode != http.StatusGone {
		t.Fatalf("second redemption status = %d, want 410", second.StatusCode)
	}
}

func TestRedeemDeactivatedTokenReturns410(t *testing.T) {
	env, cleanup := setupLinkHandlerTest(t)
	defer cleanup()

	link, _, err := env.linkSvc.Create(&service.CreateLinkRequest{FileID: env.fileID})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	if err := env.linkSvc.Deactivate(link.Token); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	resp := env.redeem(t, link.Token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("status = %d, want 410", resp.StatusCode)
	}
}

func TestDeactivateLinkTakesTokenFromBody(t *testing.T) {
	env, cleanup := setupLinkHandlerTest(t)
	defer cleanup()

	link, _, err := env.linkSvc.Create(&service.CreateLinkRequest{FileID: env.fileID})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/download-links",
		bytes.NewBufferString(`{"token":"`+link.Token+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deactivate status = %d, want 200", resp.StatusCode)
	}

	redeemed := env.redeem(t, link.Token)
	defer redeemed.Body.Close()
	if redeemed.StatusCode != http.StatusGone {
		t.Fatalf("redeem after deactivate status = %d, want 410", redeemed.StatusCode)
	}
}

func TestDeactivateLinkWithoutTokenReturns400(t *testing.T) {
	env, cleanup := setupLinkHandlerTest(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/download-links",
		bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
