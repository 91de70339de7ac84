package models

import "time"

// Webhook providers recorded in the event log.
const (
	WebhookProviderStripe = "stripe"
	WebhookProviderClerk  = "clerk"
)

// BillingWebhookEvent stores verified provider deliveries with deduplication
// metadata. ProcessingError keeps the reason a delivery was acknowledged
// without being applied, for manual inspection.
type BillingWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;uniqueIndex:ux_billing_webhook_events_provider_event,priority:1" json:"provider"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;default:'';uniqueIndex:ux_billing_webhook_events_provider_event,priority:2" json:"provider_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// WasApplied reports whether an earlier delivery of this event was processed cleanly.
func (e *BillingWebhookEvent) WasApplied() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError == ""
}
