package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthController reports whether the database and cache answer.
type HealthController struct {
	checks map[string]HealthCheck
}

func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks}
}

func (hc *HealthController) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	results := fiber.Map{}
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			log.Warnf("[Health] %s check failed: %v", name, err)
			results[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	return c.Status(status).JSON(fiber.Map{
		"ok":     status == fiber.StatusOK,
		"checks": results,
	})
}
