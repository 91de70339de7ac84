package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Lernhub/app/controllers"
)

type WebhookRouter struct {
	webhooks *controllers.WebhookController
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	hooks := app.Group("/webhooks")
	hooks.Post("/stripe", h.webhooks.HandleStripeWebhook)
	hooks.Post("/clerk", h.webhooks.HandleClerkWebhook)
}

func NewWebhookRouter(webhooks *controllers.WebhookController) *WebhookRouter {
	return &WebhookRouter{webhooks: webhooks}
}
