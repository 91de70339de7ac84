package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// User is a learner known to both the identity provider and the billing provider.
// ExternalUserID and CustomerID are fixed at creation; only the current
// subscription pointer changes afterwards.
type User struct {
	ID                    uint      `gorm:"primaryKey" json:"id"`
	ExternalUserID        string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_users_external_user_id" json:"external_user_id" validate:"required,max=191"`
	CustomerID            string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_users_customer_id" json:"customer_id" validate:"required,max=191"`
	Email                 string    `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	Name                  string    `gorm:"type:varchar(150);default:''" json:"name" validate:"max=150"`
	CurrentSubscriptionID *uint     `gorm:"index" json:"current_subscription_id,omitempty"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Validate checks the row's field rules. Named fields are skipped, which lets
// a user be checked before its billing customer exists.
func (u *User) Validate(except ...string) error {
	v := validator.New()

	if len(except) > 0 {
		return v.StructExcept(u, except...)
	}
	return v.Struct(u)
}

// HasCurrentSubscription reports whether the user points at a subscription row.
func (u *User) HasCurrentSubscription() bool {
	return u.CurrentSubscriptionID != nil && *u.CurrentSubscriptionID != 0
}
