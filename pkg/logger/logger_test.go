package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestInitAndLevels(t *testing.T) {
	previous := DefaultLogger
	defer func() { DefaultLogger = previous }()

	var buf bytes.Buffer
	Init(Config{
		Level:  "warn",
		Format: "json",
		Output: &buf,
	})

	Info().Msg("filtered out")
	Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "filtered out") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn message should be logged")
	}
}

func TestAuditFields(t *testing.T) {
	previous := DefaultLogger
	defer func() { DefaultLogger = previous }()

	var buf bytes.Buffer
	Init(Config{
		Level:  "info",
		Format: "json",
		Output: &buf,
	})

	Audit("link_deactivated", map[string]string{
		"token": "abc123",
	})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit output is not JSON: %v", err)
	}
	if entry["log_type"] != "audit" {
		t.Errorf("log_type = %v, want audit", entry["log_type"])
	}
	if entry["action"] != "link_deactivated" {
		t.Errorf("action = %v", entry["action"])
	}
	if entry["token"] != "abc123" {
		t.Errorf("token = %v", entry["token"])
	}
}

func TestContextHelpers(t *testing.T) {
	previous := DefaultLogger
	defer func() { DefaultLogger = previous }()

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})

	ctx := ContextWithLogger(context.Background(), DefaultLogger)
	if got := FromContext(ctx); got != DefaultLogger {
		t.Error("expected logger from context")
	}

	// Without a logger in context the default is returned.
	if got := FromContext(context.Background()); got == nil {
		t.Error("expected default logger fallback")
	}
}

func TestMiddlewareLogsRequests(t *testing.T) {
	previous := DefaultLogger
	defer func() { DefaultLogger = previous }()

	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})

	app := fiber.New()
	app.Use(Middleware())
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if !strings.Contains(out, `"path":"/ping"`) {
		t.Errorf("request log missing path: %s", out)
	}
	if !strings.Contains(out, `"status":200`) {
		t.Errorf("request log missing status: %s", out)
	}
}
