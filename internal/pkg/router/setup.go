package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Lernhub/app/controllers"
	"github.com/ManuelReschke/Lernhub/internal/pkg/middleware"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the handlers and middleware the routers mount.
type Dependencies struct {
	Webhooks *controllers.WebhookController
	Access   *controllers.AccessController
	Tokens   *middleware.TokenVerifier
	Health   *controllers.HealthController
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// System routes first so /metrics and /healthz stay outside the API middleware.
	setup(app, NewSystemRouter(deps.Health), NewWebhookRouter(deps.Webhooks), NewApiRouter(deps.Access, deps.Tokens))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
