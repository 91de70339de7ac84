package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Lernhub/app/controllers"
	"github.com/ManuelReschke/Lernhub/internal/pkg/middleware"
)

type ApiRouter struct {
	access *controllers.AccessController
	tokens *middleware.TokenVerifier
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", middleware.BearerIdentityMiddleware(h.tokens))

	// API v1 routes
	v1 := api.Group("/v1", middleware.RequireAPIIdentity)
	v1.Get("/users/:userId/courses/:courseId/access", h.access.HandleUserCourseAccess)
	v1.Get("/me/courses/:courseId/access", h.access.HandleMyCourseAccess)
}

func NewApiRouter(access *controllers.AccessController, tokens *middleware.TokenVerifier) *ApiRouter {
	return &ApiRouter{access: access, tokens: tokens}
}
