package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gogetteranushka/wellness-agent-core/internal/middleware"
	"github.com/gogetteranushka/wellness-agent-core/pkg/utils"
	"github.com/google/uuid"
)

const testJWTSecret = "handler-test-secret"

func newTestApp(register func(router fiber.Router)) *fiber.App {
	app := fiber.New()
	register(app.Group("", middleware.AuthRequired(testJWTSecret)))
	return app
}

func doRequest(t *testing.T, app *fiber.App, userID uuid.UUID, method, path, body string) *http.Response {
	t.Helper()
	token, err := utils.GenerateToken(userID, "user@example.com", "authenticated", testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func newUnauthenticatedRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
