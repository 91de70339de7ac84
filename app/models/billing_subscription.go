package models

import "time"

const (
	BillingIntervalMonth   = "month"
	BillingIntervalYear    = "year"
	BillingIntervalUnknown = "unknown"
)

const (
	BillingStatusActive            = "active"
	BillingStatusTrialing          = "trialing"
	BillingStatusPastDue           = "past_due"
	BillingStatusCanceled          = "canceled"
	BillingStatusIncomplete        = "incomplete"
	BillingStatusIncompleteExpired = "incomplete_expired"
	BillingStatusUnpaid            = "unpaid"
	BillingStatusPaused            = "paused"
)

// BillingSubscription mirrors a provider subscription. Rows are never deleted;
// cancellation flips Status and the owning user's pointer moves away.
type BillingSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	UserID                 uint       `gorm:"not null;index" json:"user_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_billing_subscriptions_subid" json:"provider_subscription_id"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	BillingInterval        string     `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_interval"`
	CurrentPeriodStart     *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd       *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the subscription currently grants entitlement.
func (s *BillingSubscription) IsActive() bool {
	return s != nil && s.Status == BillingStatusActive
}
