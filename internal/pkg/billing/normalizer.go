package billing

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ManuelReschke/Lernhub/app/models"
)

// Provider event types we map.
const (
	ClerkUserCreated              = "user.created"
	StripeCheckoutSessionComplete = "checkout.session.completed"
	StripeSubscriptionCreated     = "customer.subscription.created"
	StripeSubscriptionUpdated     = "customer.subscription.updated"
	StripeSubscriptionDeleted     = "customer.subscription.deleted"
)

// Normalize maps a verified provider event into the internal taxonomy.
// Unknown types become NoOp; undecodable payloads are ReconciliationErrors.
func Normalize(ev *VerifiedEvent) (Event, error) {
	if ev == nil {
		return nil, missingReference("unknown", "nil event")
	}

	switch ev.Provider {
	case models.WebhookProviderClerk:
		return normalizeClerk(ev)
	case models.WebhookProviderStripe:
		return normalizeStripe(ev)
	default:
		return NoOp{Type: ev.Provider + ":" + ev.Type}, nil
	}
}

func normalizeClerk(ev *VerifiedEvent) (Event, error) {
	if ev.Type != ClerkUserCreated {
		return NoOp{Type: ev.Type}, nil
	}

	var raw struct {
		ID             string `json:"id"`
		FirstName      string `json:"first_name"`
		LastName       string `json:"last_name"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
	}
	if err := json.Unmarshal(ev.Payload, &raw); err != nil {
		return nil, &ReconciliationError{EventType: ev.Type, Reason: "decode user payload", Err: err}
	}

	email := ""
	if len(raw.EmailAddresses) > 0 {
		email = strings.TrimSpace(raw.EmailAddresses[0].EmailAddress)
	}

	return IdentityUserCreated{
		ExternalUserID: strings.TrimSpace(raw.ID),
		Email:          email,
		DisplayName:    strings.TrimSpace(strings.TrimSpace(raw.FirstName) + " " + strings.TrimSpace(raw.LastName)),
	}, nil
}

type stripeCheckoutSession struct {
	ID          string            `json:"id"`
	Customer    json.RawMessage   `json:"customer"`
	AmountTotal *int64            `json:"amount_total"`
	Metadata    map[string]string `json:"metadata"`
}

type stripeSubscriptionItem struct {
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Plan               *struct {
		Interval string `json:"interval"`
	} `json:"plan"`
	Price *struct {
		Recurring *struct {
			Interval string `json:"interval"`
		} `json:"recurring"`
	} `json:"price"`
}

type stripeSubscription struct {
	ID                 string          `json:"id"`
	Customer           json.RawMessage `json:"customer"`
	Status             string          `json:"status"`
	CancelAtPeriodEnd  bool            `json:"cancel_at_period_end"`
	CurrentPeriodStart int64           `json:"current_period_start"`
	CurrentPeriodEnd   int64           `json:"current_period_end"`
	LatestInvoice      json.RawMessage `json:"latest_invoice"`
	Items              struct {
		Data []stripeSubscriptionItem `json:"data"`
	} `json:"items"`
}

func normalizeStripe(ev *VerifiedEvent) (Event, error) {
	switch ev.Type {
	case StripeCheckoutSessionComplete:
		var s stripeCheckoutSession
		if err := json.Unmarshal(ev.Payload, &s); err != nil {
			return nil, &ReconciliationError{EventType: ev.Type, Reason: "decode checkout session", Err: err}
		}
		var amount int64
		if s.AmountTotal != nil {
			amount = *s.AmountTotal
		}
		return CheckoutCompleted{
			ExternalCustomerID:    expandableID(s.Customer),
			CourseID:              strings.TrimSpace(s.Metadata["courseId"]),
			AmountTotal:           amount,
			ExternalTransactionID: strings.TrimSpace(s.ID),
			Course: CourseMetadata{
				Title:    s.Metadata["courseTitle"],
				ImageURL: s.Metadata["courseImageUrl"],
			},
		}, nil

	case StripeSubscriptionCreated, StripeSubscriptionUpdated:
		var s stripeSubscription
		if err := json.Unmarshal(ev.Payload, &s); err != nil {
			return nil, &ReconciliationError{EventType: ev.Type, Reason: "decode subscription", Err: err}
		}
		start, end := s.CurrentPeriodStart, s.CurrentPeriodEnd
		interval := ""
		if len(s.Items.Data) > 0 {
			item := s.Items.Data[0]
			// Newer API versions only carry the billing period on the item.
			if start == 0 {
				start = item.CurrentPeriodStart
			}
			if end == 0 {
				end = item.CurrentPeriodEnd
			}
			if item.Plan != nil {
				interval = item.Plan.Interval
			}
			if interval == "" && item.Price != nil && item.Price.Recurring != nil {
				interval = item.Price.Recurring.Interval
			}
		}
		return SubscriptionUpserted{
			ExternalCustomerID:     expandableID(s.Customer),
			ExternalSubscriptionID: strings.TrimSpace(s.ID),
			Status:                 strings.ToLower(strings.TrimSpace(s.Status)),
			PlanInterval:           normalizeInterval(interval),
			PeriodStart:            unixTime(start),
			PeriodEnd:              unixTime(end),
			CancelAtPeriodEnd:      s.CancelAtPeriodEnd,
			HasLatestInvoice:       expandableID(s.LatestInvoice) != "",
			IsCreationEvent:        ev.Type == StripeSubscriptionCreated,
		}, nil

	case StripeSubscriptionDeleted:
		var s struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(ev.Payload, &s); err != nil {
			return nil, &ReconciliationError{EventType: ev.Type, Reason: "decode subscription", Err: err}
		}
		return SubscriptionDeleted{ExternalSubscriptionID: strings.TrimSpace(s.ID)}, nil

	default:
		return NoOp{Type: ev.Type}, nil
	}
}

// expandableID reads a Stripe field that is either an id string or an
// expanded object with an "id" key.
func expandableID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

func normalizeInterval(interval string) string {
	i := strings.ToLower(strings.TrimSpace(interval))
	switch i {
	case models.BillingIntervalMonth, models.BillingIntervalYear:
		return i
	default:
		return models.BillingIntervalUnknown
	}
}

// isEntitlingStatus is the active-equivalent policy for subscription upserts.
func isEntitlingStatus(status string) bool {
	return strings.ToLower(strings.TrimSpace(status)) == models.BillingStatusActive
}
