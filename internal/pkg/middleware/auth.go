package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Lernhub/internal/pkg/usercontext"
)

// RequireAPIIdentity ensures an authenticated caller for API routes and returns JSON 401 otherwise.
func RequireAPIIdentity(c *fiber.Ctx) error {
	if !usercontext.GetIdentity(c).IsAuthenticated() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "valid bearer token required",
		})
	}
	return c.Next()
}
