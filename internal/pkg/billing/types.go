package billing

import "time"

// Event is the closed set of normalized webhook events. Downstream code
// switches over the concrete types; NoOp is the explicit catch-all.
type Event interface {
	EventType() string
	isEvent()
}

// IdentityUserCreated is emitted for Clerk "user.created".
type IdentityUserCreated struct {
	ExternalUserID string `validate:"required"`
	Email          string `validate:"omitempty,email"`
	DisplayName    string
}

// CourseMetadata carries checkout metadata used for the confirmation mail.
type CourseMetadata struct {
	Title    string
	ImageURL string
}

// CheckoutCompleted is emitted for Stripe "checkout.session.completed".
type CheckoutCompleted struct {
	ExternalCustomerID    string `validate:"required"`
	CourseID              string `validate:"required"`
	AmountTotal           int64  `validate:"gte=0"`
	ExternalTransactionID string `validate:"required"`
	Course                CourseMetadata
}

// SubscriptionUpserted is emitted for Stripe "customer.subscription.created" and
// "customer.subscription.updated".
type SubscriptionUpserted struct {
	ExternalCustomerID     string `validate:"required"`
	ExternalSubscriptionID string `validate:"required"`
	Status                 string `validate:"required"`
	PlanInterval           string
	PeriodStart            *time.Time
	PeriodEnd              *time.Time
	CancelAtPeriodEnd      bool
	HasLatestInvoice       bool
	IsCreationEvent        bool
}

// SubscriptionDeleted is emitted for Stripe "customer.subscription.deleted".
type SubscriptionDeleted struct {
	ExternalSubscriptionID string `validate:"required"`
}

// NoOp stands in for any event type we do not act on.
type NoOp struct {
	Type string
}

const (
	EventIdentityUserCreated  = "identity_user_created"
	EventCheckoutCompleted    = "checkout_completed"
	EventSubscriptionUpserted = "subscription_upserted"
	EventSubscriptionDeleted  = "subscription_deleted"
	EventNoOp                 = "noop"
)

func (IdentityUserCreated) EventType() string  { return EventIdentityUserCreated }
func (CheckoutCompleted) EventType() string    { return EventCheckoutCompleted }
func (SubscriptionUpserted) EventType() string { return EventSubscriptionUpserted }
func (SubscriptionDeleted) EventType() string  { return EventSubscriptionDeleted }
func (NoOp) EventType() string                 { return EventNoOp }

func (IdentityUserCreated) isEvent()  {}
func (CheckoutCompleted) isEvent()    {}
func (SubscriptionUpserted) isEvent() {}
func (SubscriptionDeleted) isEvent()  {}
func (NoOp) isEvent()                 {}

// Outcome describes what applying an event did to persisted state.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeNoOp      Outcome = "noop"
)
