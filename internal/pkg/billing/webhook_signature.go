package billing

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ManuelReschke/Lernhub/app/models"
	"github.com/stripe/stripe-go/v82/webhook"
	svix "github.com/svix/svix-webhooks/go"
)

// Header names used by the two webhook providers.
const (
	StripeSignatureHeader = "Stripe-Signature"
	SvixIDHeader          = "svix-id"
	SvixTimestampHeader   = "svix-timestamp"
	SvixSignatureHeader   = "svix-signature"
)

// StripeSignatureTolerance bounds the age of a Stripe-Signature timestamp.
var StripeSignatureTolerance = webhook.DefaultTolerance

// VerifiedEvent is a webhook body whose origin has been proven.
type VerifiedEvent struct {
	Provider string
	ID       string
	Type     string
	Payload  json.RawMessage
}

// SvixHeaders carries the three Svix delivery headers used by Clerk.
type SvixHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

// SvixHeadersFrom extracts the Svix headers via a getter, e.g. fiber's c.Get.
func SvixHeadersFrom(get func(string) string) SvixHeaders {
	return SvixHeaders{
		ID:        strings.TrimSpace(get(SvixIDHeader)),
		Timestamp: strings.TrimSpace(get(SvixTimestampHeader)),
		Signature: strings.TrimSpace(get(SvixSignatureHeader)),
	}
}

// VerifyStripeWebhook checks the Stripe-Signature header (HMAC-SHA256 with
// timestamp tolerance) and returns the decoded event envelope.
func VerifyStripeWebhook(payload []byte, signatureHeader, webhookSecret string) (*VerifiedEvent, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" {
		return nil, &AuthenticityError{Provider: models.WebhookProviderStripe, Reason: "missing signature header"}
	}
	if secret == "" {
		return nil, &AuthenticityError{Provider: models.WebhookProviderStripe, Reason: "webhook secret not configured"}
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		Tolerance:                StripeSignatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &AuthenticityError{Provider: models.WebhookProviderStripe, Reason: "signature mismatch", Err: err}
	}
	if event.Data == nil {
		return nil, &AuthenticityError{Provider: models.WebhookProviderStripe, Reason: "event has no data object"}
	}

	return &VerifiedEvent{
		Provider: models.WebhookProviderStripe,
		ID:       event.ID,
		Type:     string(event.Type),
		Payload:  event.Data.Raw,
	}, nil
}

// VerifyClerkWebhook checks a Clerk delivery signed through Svix.
func VerifyClerkWebhook(payload []byte, headers SvixHeaders, webhookSecret string) (*VerifiedEvent, error) {
	if headers.ID == "" || headers.Timestamp == "" || headers.Signature == "" {
		return nil, &AuthenticityError{Provider: models.WebhookProviderClerk, Reason: "missing svix headers"}
	}
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return nil, &AuthenticityError{Provider: models.WebhookProviderClerk, Reason: "webhook secret not configured"}
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, &AuthenticityError{Provider: models.WebhookProviderClerk, Reason: "invalid webhook secret", Err: err}
	}

	h := http.Header{}
	h.Set(SvixIDHeader, headers.ID)
	h.Set(SvixTimestampHeader, headers.Timestamp)
	h.Set(SvixSignatureHeader, headers.Signature)
	if err := wh.Verify(payload, h); err != nil {
		return nil, &AuthenticityError{Provider: models.WebhookProviderClerk, Reason: "signature mismatch", Err: err}
	}

	var envelope struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, &ReconciliationError{EventType: "clerk", Reason: "unreadable payload", Err: err}
	}
	if strings.TrimSpace(envelope.Type) == "" {
		return nil, missingReference("clerk", "payload missing type")
	}

	return &VerifiedEvent{
		Provider: models.WebhookProviderClerk,
		ID:       headers.ID,
		Type:     strings.TrimSpace(envelope.Type),
		Payload:  envelope.Data,
	}, nil
}
