package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/Lernhub/app/models"
	"github.com/ManuelReschke/Lernhub/internal/pkg/billing"
	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
	"github.com/ManuelReschke/Lernhub/internal/pkg/metrics"
)

const defaultWebhookTimeout = 15 * time.Second

// WebhookController receives Stripe and Clerk deliveries. Providers only
// ever see a status code and a short error key, never internal detail.
type WebhookController struct {
	svc          *billing.Service
	stripeSecret string
	clerkSecret  string
	timeout      time.Duration
}

func NewWebhookController(svc *billing.Service, stripeSecret, clerkSecret string) *WebhookController {
	return &WebhookController{
		svc:          svc,
		stripeSecret: stripeSecret,
		clerkSecret:  clerkSecret,
		timeout:      defaultWebhookTimeout,
	}
}

// NewWebhookControllerFromEnv reads STRIPE_WEBHOOK_SECRET, CLERK_WEBHOOK_SECRET and WEBHOOK_TIMEOUT.
func NewWebhookControllerFromEnv(svc *billing.Service) *WebhookController {
	wc := NewWebhookController(svc, env.GetEnv("STRIPE_WEBHOOK_SECRET", ""), env.GetEnv("CLERK_WEBHOOK_SECRET", ""))
	wc.timeout = env.GetDuration("WEBHOOK_TIMEOUT", defaultWebhookTimeout)
	return wc
}

func (wc *WebhookController) HandleStripeWebhook(c *fiber.Ctx) error {
	start := time.Now()
	defer observeWebhook(models.WebhookProviderStripe, start)

	rawBody := append([]byte(nil), c.BodyRaw()...)
	verified, err := billing.VerifyStripeWebhook(rawBody, c.Get(billing.StripeSignatureHeader), wc.stripeSecret)
	if err != nil {
		return wc.respondError(c, models.WebhookProviderStripe, err)
	}
	return wc.process(c, verified, rawBody)
}

func (wc *WebhookController) HandleClerkWebhook(c *fiber.Ctx) error {
	start := time.Now()
	defer observeWebhook(models.WebhookProviderClerk, start)

	rawBody := append([]byte(nil), c.BodyRaw()...)
	verified, err := billing.VerifyClerkWebhook(rawBody, billing.SvixHeadersFrom(func(k string) string { return c.Get(k) }), wc.clerkSecret)
	if err != nil {
		return wc.respondError(c, models.WebhookProviderClerk, err)
	}
	return wc.process(c, verified, rawBody)
}

func (wc *WebhookController) process(c *fiber.Ctx, verified *billing.VerifiedEvent, rawBody []byte) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), wc.timeout)
	defer cancel()

	repo := wc.svc.Repository()
	_, stored, err := repo.CreateWebhookEventIfNotExists(ctx, &models.BillingWebhookEvent{
		Provider:        verified.Provider,
		ProviderEventID: verified.ID,
		EventType:       verified.Type,
		PayloadJSON:     string(rawBody),
	})
	if err != nil {
		log.Errorf("[Webhook] Failed to record %s event %s: %v", verified.Provider, verified.ID, err)
		return wc.respondError(c, verified.Provider, err)
	}
	if stored.WasApplied() {
		log.Infof("[Webhook] %s event %s already processed", verified.Provider, verified.ID)
		return wc.respondOutcome(c, verified.Provider, billing.OutcomeDuplicate)
	}

	outcome, applyErr := wc.apply(ctx, verified)

	processingError := ""
	if applyErr != nil {
		processingError = applyErr.Error()
	}
	if err := repo.MarkWebhookProcessed(ctx, stored.ID, processingError); err != nil {
		log.Warnf("[Webhook] Failed to mark %s event %s processed: %v", verified.Provider, verified.ID, err)
	}

	if applyErr != nil {
		return wc.respondError(c, verified.Provider, applyErr)
	}
	return wc.respondOutcome(c, verified.Provider, outcome)
}

func (wc *WebhookController) apply(ctx context.Context, verified *billing.VerifiedEvent) (billing.Outcome, error) {
	event, err := billing.Normalize(verified)
	if err != nil {
		return "", err
	}
	return wc.svc.Apply(ctx, event)
}

func (wc *WebhookController) respondOutcome(c *fiber.Ctx, provider string, outcome billing.Outcome) error {
	metrics.WebhookEvents.WithLabelValues(provider, string(outcome)).Inc()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "outcome": outcome})
}

func (wc *WebhookController) respondError(c *fiber.Ctx, provider string, err error) error {
	var (
		authErr *billing.AuthenticityError
		recErr  *billing.ReconciliationError
		provErr *billing.ProvisioningError
	)
	switch {
	case errors.As(err, &authErr):
		log.Warnf("[Webhook] Rejected %s delivery: %v", provider, err)
		metrics.WebhookEvents.WithLabelValues(provider, "rejected").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	case errors.As(err, &recErr):
		log.Errorf("[Webhook] Could not reconcile %s event: %v", provider, err)
		metrics.WebhookEvents.WithLabelValues(provider, "unreconciled").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unprocessable_event"})
	case errors.As(err, &provErr):
		log.Errorf("[Webhook] Provisioning failed for %s event: %v", provider, err)
		metrics.WebhookEvents.WithLabelValues(provider, "provisioning_failed").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "provisioning_failed"})
	default:
		log.Errorf("[Webhook] Failed to process %s event: %v", provider, err)
		metrics.WebhookEvents.WithLabelValues(provider, "error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_error"})
	}
}

func observeWebhook(provider string, start time.Time) {
	metrics.WebhookDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
