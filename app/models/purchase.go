package models

import "time"

// Purchase is a write-once record of a one-time course checkout. TransactionID
// is the billing provider's checkout session id and doubles as the idempotency key.
type Purchase struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;uniqueIndex:ux_purchases_user_course,priority:1" json:"user_id"`
	CourseID      string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_purchases_user_course,priority:2" json:"course_id"`
	Amount        int64     `gorm:"not null;default:0" json:"amount"`
	TransactionID string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_purchases_transaction_id" json:"transaction_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
