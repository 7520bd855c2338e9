package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/redemption-queue/internal/api/http/handlers"
	"github.com/spec-kit/redemption-queue/internal/auth"
	"github.com/spec-kit/redemption-queue/internal/config"
	"github.com/spec-kit/redemption-queue/internal/events"
	"github.com/spec-kit/redemption-queue/internal/observability"
	"github.com/spec-kit/redemption-queue/internal/repository"
	"github.com/spec-kit/redemption-queue/internal/service"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	queue := service.NewQueueService(service.QueueDependencies{
		TicketRepo:     repository.NewMemoryTicketRepository(),
		RedemptionRepo: repository.NewMemoryRedemptionRepository(),
		HistoryRepo:    repository.NewMemoryTicketHistoryRepository(),
		Dispatcher:     events.NewInMemoryDispatcher(logger),
		Logger:         logger,
		Metrics:        metrics,
		Config:         config.QueueConfig{AllocationAttempts: 3, AllocationRetryDelay: time.Millisecond},
	})

	hash, err := auth.HashPassword("letmein", 4)
	require.NoError(t, err)
	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "router-test",
		AccessTokenTTLMinutes: 5,
		AdminUsername:         "admin",
		AdminPasswordHash:     hash,
	}, logger)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("redemption-queue", "test", nil, nil, metrics),
		Queue:          handlers.NewQueueHandler(queue),
		Admin:          handlers.NewAdminTicketsHandler(queue, 30*time.Second),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/auth/admin/login", map[string]string{"username": "admin", "password": "letmein"}, "")
	require.Equal(t, http.StatusOK, status)
	token := body["data"].(map[string]any)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func enqueue(t *testing.T, app *fiber.App, contact string) string {
	t.Helper()
	status, body := call(t, app, http.MethodPost, "/queue", map[string]any{
		"contact_info":    contact,
		"product_type":    "robux",
		"roblox_password": "hunter2",
	}, "")
	require.Equal(t, http.StatusCreated, status)
	return body["data"].(map[string]any)["id"].(string)
}

func TestPublicQueueRoutes(t *testing.T) {
	app := newTestApp(t)
	enqueue(t, app, "ชื่อ: alice | เบอร์โทร: 0811111111")
	enqueue(t, app, "ชื่อ: bob | เบอร์โทร: 0822222222")

	status, body := call(t, app, http.MethodGet, "/queue/display", nil, "")
	require.Equal(t, http.StatusOK, status)
	entries := body["data"].(map[string]any)["entries"].([]any)
	require.Len(t, entries, 2)
	assert.Equal(t, float64(1), entries[0].(map[string]any)["queue_number"])
	assert.Equal(t, float64(2), entries[1].(map[string]any)["position"])

	status, body = call(t, app, http.MethodGet, "/queue/lookup?q=ALICE", nil, "")
	require.Equal(t, http.StatusOK, status)
	found := body["data"].([]any)
	require.Len(t, found, 1)
	item := found[0].(map[string]any)
	assert.Equal(t, float64(1), item["queue_number"])
	assert.Equal(t, "waiting", item["status"])
	assert.NotContains(t, item, "roblox_password")
	assert.NotContains(t, item, "contact_info")

	status, body = call(t, app, http.MethodGet, "/queue/lookup?q=", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestAddToQueueValidation(t *testing.T) {
	app := newTestApp(t)
	status, body := call(t, app, http.MethodPost, "/queue", map[string]any{"contact_info": "", "product_type": "gold"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = call(t, app, http.MethodPost, "/queue", map[string]any{
		"contact_info":          "ชื่อ: mallory",
		"product_type":          "robux",
		"redemption_request_id": "not-a-uuid",
	}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestAdminRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/admin/tickets", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	status, body = call(t, app, http.MethodPost, "/auth/admin/login", map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestAdminTicketLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := login(t, app)
	first := enqueue(t, app, "ชื่อ: alice")
	second := enqueue(t, app, "ชื่อ: bob")

	status, body := call(t, app, http.MethodGet, "/admin/tickets?status=waiting", nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["data"], 2)
	assert.Equal(t, float64(30), body["meta"].(map[string]any)["refresh_interval_seconds"])

	status, body = call(t, app, http.MethodGet, "/admin/tickets?status=bogus", nil, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = call(t, app, http.MethodPost, "/admin/tickets/"+first+"/move", map[string]string{"direction": "up"}, token)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CANNOT_MOVE", errorCode(body))

	status, _ = call(t, app, http.MethodPost, "/admin/tickets/"+second+"/move", map[string]string{"direction": "up"}, token)
	assert.Equal(t, http.StatusNoContent, status)
	_, body = call(t, app, http.MethodGet, "/queue/display", nil, "")
	entries := body["data"].(map[string]any)["entries"].([]any)
	assert.Equal(t, float64(2), entries[0].(map[string]any)["queue_number"])

	status, body = call(t, app, http.MethodPatch, "/admin/tickets/"+first+"/status", map[string]any{"status": "completed"}, token)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(body))

	status, body = call(t, app, http.MethodPatch, "/admin/tickets/"+first+"/status", map[string]any{"status": "processing"}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "processing", body["data"].(map[string]any)["status"])

	status, body = call(t, app, http.MethodPatch, "/admin/tickets/"+first+"/status", map[string]any{"status": "problem"}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	status, body = call(t, app, http.MethodPatch, "/admin/tickets/"+first+"/status", map[string]any{
		"status": "problem", "problem_category": "wrong_password", "admin_notes": "called twice",
	}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "wrong_password", body["data"].(map[string]any)["problem_category"])

	_, body = call(t, app, http.MethodGet, "/admin/tickets/stats/problems", nil, token)
	assert.Equal(t, float64(1), body["data"].(map[string]any)["wrong_password"])

	status, body = call(t, app, http.MethodGet, "/admin/tickets/"+first+"/history", nil, token)
	require.Equal(t, http.StatusOK, status)
	history := body["data"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "admin", history[0].(map[string]any)["changed_by"])

	status, body = call(t, app, http.MethodPost, "/admin/tickets/bulk-status", map[string]any{
		"ids": []string{first, second, "missing"}, "status": "processing",
	}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["data"].(map[string]any)["success"])
	assert.Equal(t, float64(1), body["data"].(map[string]any)["failure"])

	status, _ = call(t, app, http.MethodDelete, "/admin/tickets/"+second, nil, token)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = call(t, app, http.MethodGet, "/admin/tickets/"+second, nil, token)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "disabled", body["dependencies"].(map[string]any)["redis"])

	status, body = call(t, app, http.MethodGet, "/health/metrics", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["data"], "requests")

	status, body = call(t, app, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}
