package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/Lernhub/app/controllers"
)

type SystemRouter struct {
	health *controllers.HealthController
}

func (h SystemRouter) InstallRouter(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", h.health.HandleHealth)
}

func NewSystemRouter(health *controllers.HealthController) *SystemRouter {
	return &SystemRouter{health: health}
}
