package router

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Lernhub/app/controllers"
	"github.com/ManuelReschke/Lernhub/internal/pkg/billing"
	"github.com/ManuelReschke/Lernhub/internal/pkg/entitlements"
	"github.com/ManuelReschke/Lernhub/internal/pkg/middleware"
	"github.com/ManuelReschke/Lernhub/internal/testutil"
)

type noCustomers struct{}

func (noCustomers) CreateCustomer(context.Context, string, string, string) (string, error) {
	return "cus_router", nil
}

func setupRouterApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := billing.NewServiceFromDB(db, noCustomers{}, nil, "")
	tokens, err := middleware.NewTokenVerifier("", "router-secret")
	require.NoError(t, err)

	app := fiber.New()
	InstallRouter(app, Dependencies{
		Webhooks: controllers.NewWebhookController(svc, "whsec_router", "whsec_cm91dGVyLXNlY3JldC0wMTIzNDU2Nzg5YWJjZGVm"),
		Access:   controllers.NewAccessController(entitlements.NewEvaluator(svc.Repository())),
		Tokens:   tokens,
		Health: controllers.NewHealthController(map[string]controllers.HealthCheck{
			"database": func(context.Context) error { return nil },
		}),
	})
	return app
}

func TestInstallRouter_Routes(t *testing.T) {
	app := setupRouterApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", "GET", "/healthz", fiber.StatusOK},
		{"stripe webhook without signature", "POST", "/webhooks/stripe", fiber.StatusBadRequest},
		{"clerk webhook without headers", "POST", "/webhooks/clerk", fiber.StatusBadRequest},
		{"access without token", "GET", "/api/v1/users/1/courses/c1/access", fiber.StatusUnauthorized},
		{"me without token", "GET", "/api/v1/me/courses/c1/access", fiber.StatusUnauthorized},
		{"unknown route", "GET", "/nope", fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestInstallRouter_Metrics(t *testing.T) {
	app := setupRouterApp(t)

	// Record at least one webhook outcome
	_, err := app.Test(httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader("{}")))
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lernhub_webhook_events_total")
}
