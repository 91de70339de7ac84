package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManuelReschke/Lernhub/app/models"
	"github.com/ManuelReschke/Lernhub/internal/pkg/mail"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// CustomerProvisioner creates the billing-provider customer for a new user.
type CustomerProvisioner interface {
	CreateCustomer(ctx context.Context, externalUserID, email, name string) (string, error)
}

// Notifier sends best-effort notifications. Implementations must not block
// on delivery and never report failures back to the caller.
type Notifier interface {
	Send(ctx context.Context, templateID, recipient string, data map[string]interface{})
}

// Service applies normalized provider events to persisted users, purchases
// and subscriptions. It holds no state of its own; idempotency comes from the
// external ids and the repository's unique keys.
type Service struct {
	repo      Repository
	customers CustomerProvisioner
	notifier  Notifier
	validate  *validator.Validate
	appURL    string
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, customers CustomerProvisioner, notifier Notifier, appURL string) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		notifier:  notifier,
		validate:  validator.New(),
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, customers CustomerProvisioner, notifier Notifier, appURL string) *Service {
	return NewService(NewRepository(db), customers, notifier, appURL)
}

// Repository exposes the underlying store for the webhook audit log.
func (s *Service) Repository() Repository {
	return s.repo
}

// Apply dispatches a normalized event to its reconciliation step.
func (s *Service) Apply(ctx context.Context, ev Event) (Outcome, error) {
	switch e := ev.(type) {
	case IdentityUserCreated:
		_, outcome, err := s.ApplyIdentityUserCreated(ctx, e)
		return outcome, err
	case CheckoutCompleted:
		return s.ApplyCheckoutCompleted(ctx, e)
	case SubscriptionUpserted:
		return s.ApplySubscriptionUpserted(ctx, e)
	case SubscriptionDeleted:
		return s.ApplySubscriptionDeleted(ctx, e)
	case NoOp:
		log.Infof("[Billing] Unhandled event type %s", e.Type)
		return OutcomeNoOp, nil
	case nil:
		return "", missingReference("unknown", "nil event")
	default:
		return "", missingReference(ev.EventType(), fmt.Sprintf("unsupported event %T", ev))
	}
}

// ApplyIdentityUserCreated provisions a billing customer and inserts the user.
// A replay returns the existing user untouched.
func (s *Service) ApplyIdentityUserCreated(ctx context.Context, ev IdentityUserCreated) (*models.User, Outcome, error) {
	if err := s.validate.Struct(ev); err != nil {
		return nil, "", &ReconciliationError{EventType: ev.EventType(), Reason: "invalid event", Err: err}
	}

	existing, err := s.repo.GetUserByExternalID(ctx, ev.ExternalUserID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user %s: %w", ev.ExternalUserID, err)
	}
	if existing != nil {
		log.Infof("[Billing] User %s already exists (id=%d)", ev.ExternalUserID, existing.ID)
		return existing, OutcomeDuplicate, nil
	}

	user := &models.User{
		ExternalUserID: ev.ExternalUserID,
		Email:          ev.Email,
		Name:           ev.DisplayName,
	}
	if err := user.Validate("CustomerID"); err != nil {
		return nil, "", &ReconciliationError{EventType: ev.EventType(), Reason: "invalid user fields", Err: err}
	}

	customerID, err := s.customers.CreateCustomer(ctx, ev.ExternalUserID, ev.Email, ev.DisplayName)
	if err != nil {
		return nil, "", &ProvisioningError{ExternalUserID: ev.ExternalUserID, Err: err}
	}
	if strings.TrimSpace(customerID) == "" {
		return nil, "", &ProvisioningError{ExternalUserID: ev.ExternalUserID, Err: fmt.Errorf("empty customer id")}
	}
	user.CustomerID = customerID
	if err := user.Validate(); err != nil {
		return nil, "", &ProvisioningError{ExternalUserID: ev.ExternalUserID, Err: err}
	}

	created, stored, err := s.repo.InsertUser(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("insert user %s: %w", ev.ExternalUserID, err)
	}
	if !created {
		log.Infof("[Billing] Concurrent delivery already created user %s (id=%d)", ev.ExternalUserID, stored.ID)
		return stored, OutcomeDuplicate, nil
	}

	log.Infof("[Billing] Created user %d for %s with customer %s", stored.ID, ev.ExternalUserID, customerID)
	s.notify(ctx, mail.TemplateWelcome, stored.Email, map[string]interface{}{
		"name": stored.Name,
		"url":  s.appURL,
	})
	return stored, OutcomeApplied, nil
}

// ApplyCheckoutCompleted records a one-time course purchase keyed by the
// checkout transaction id.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, ev CheckoutCompleted) (Outcome, error) {
	if err := s.validate.Struct(ev); err != nil {
		return "", &ReconciliationError{EventType: ev.EventType(), Reason: "missing courseId, customer or transaction id", Err: err}
	}

	user, err := s.repo.GetUserByCustomerID(ctx, ev.ExternalCustomerID)
	if err != nil {
		return "", fmt.Errorf("lookup customer %s: %w", ev.ExternalCustomerID, err)
	}
	if user == nil {
		return "", missingReference(ev.EventType(), "user not found for customer "+ev.ExternalCustomerID)
	}

	prior, err := s.repo.GetPurchaseByTransactionID(ctx, ev.ExternalTransactionID)
	if err != nil {
		return "", fmt.Errorf("lookup purchase %s: %w", ev.ExternalTransactionID, err)
	}
	if prior != nil {
		log.Infof("[Billing] Purchase %s already recorded", ev.ExternalTransactionID)
		return OutcomeDuplicate, nil
	}

	created, err := s.repo.InsertPurchase(ctx, &models.Purchase{
		UserID:        user.ID,
		CourseID:      ev.CourseID,
		Amount:        ev.AmountTotal,
		TransactionID: ev.ExternalTransactionID,
	})
	if err != nil {
		return "", fmt.Errorf("insert purchase %s: %w", ev.ExternalTransactionID, err)
	}
	if !created {
		log.Infof("[Billing] Purchase %s (user=%d course=%s) already present", ev.ExternalTransactionID, user.ID, ev.CourseID)
		return OutcomeDuplicate, nil
	}

	log.Infof("[Billing] Recorded purchase %s for user %d course %s", ev.ExternalTransactionID, user.ID, ev.CourseID)
	s.notify(ctx, mail.TemplatePurchaseConfirmation, user.Email, map[string]interface{}{
		"customer_name":   user.Name,
		"course_title":    ev.Course.Title,
		"course_image":    ev.Course.ImageURL,
		"course_url":      s.appURL + "/courses/" + ev.CourseID,
		"purchase_amount": float64(ev.AmountTotal) / 100,
	})
	return OutcomeApplied, nil
}

// ApplySubscriptionUpserted stores an entitling subscription and points the
// user at it. Non-entitling lifecycle states are acknowledged and skipped.
func (s *Service) ApplySubscriptionUpserted(ctx context.Context, ev SubscriptionUpserted) (Outcome, error) {
	if err := s.validate.Struct(ev); err != nil {
		return "", &ReconciliationError{EventType: ev.EventType(), Reason: "invalid event", Err: err}
	}

	if !isEntitlingStatus(ev.Status) || !ev.HasLatestInvoice {
		log.Infof("[Billing] Skipping subscription %s - Status: %s, invoice: %t", ev.ExternalSubscriptionID, ev.Status, ev.HasLatestInvoice)
		return OutcomeSkipped, nil
	}

	user, err := s.repo.GetUserByCustomerID(ctx, ev.ExternalCustomerID)
	if err != nil {
		return "", fmt.Errorf("lookup customer %s: %w", ev.ExternalCustomerID, err)
	}
	if user == nil {
		return "", missingReference(ev.EventType(), "user not found for customer "+ev.ExternalCustomerID)
	}

	// Canceled is terminal: a late created/updated delivery must not revive it.
	stored, err := s.repo.GetSubscription(ctx, ev.ExternalSubscriptionID)
	if err != nil {
		return "", fmt.Errorf("lookup subscription %s: %w", ev.ExternalSubscriptionID, err)
	}
	if stored != nil && stored.Status == models.BillingStatusCanceled {
		log.Infof("[Billing] Skipping subscription %s - already canceled", ev.ExternalSubscriptionID)
		return OutcomeSkipped, nil
	}

	sub := &models.BillingSubscription{
		UserID:                 user.ID,
		ProviderSubscriptionID: ev.ExternalSubscriptionID,
		Status:                 models.BillingStatusActive,
		BillingInterval:        normalizeInterval(ev.PlanInterval),
		CurrentPeriodStart:     ev.PeriodStart,
		CurrentPeriodEnd:       ev.PeriodEnd,
		CancelAtPeriodEnd:      ev.CancelAtPeriodEnd,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return "", fmt.Errorf("upsert subscription %s: %w", ev.ExternalSubscriptionID, err)
	}
	if err := s.repo.SetUserCurrentSubscription(ctx, user.ID, &sub.ID); err != nil {
		return "", fmt.Errorf("point user %d at subscription %d: %w", user.ID, sub.ID, err)
	}

	log.Infof("[Billing] Upserted subscription %s for user %d", ev.ExternalSubscriptionID, user.ID)
	if ev.IsCreationEvent {
		s.notify(ctx, mail.TemplateProPlanActivated, user.Email, map[string]interface{}{
			"name":                 user.Name,
			"plan_type":            sub.BillingInterval,
			"current_period_start": formatDate(sub.CurrentPeriodStart),
			"current_period_end":   formatDate(sub.CurrentPeriodEnd),
			"url":                  s.appURL,
		})
	}
	return OutcomeApplied, nil
}

// ApplySubscriptionDeleted cancels the stored subscription and drops the
// owner's pointer to it. Unknown subscriptions are a no-op.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, ev SubscriptionDeleted) (Outcome, error) {
	if err := s.validate.Struct(ev); err != nil {
		return "", &ReconciliationError{EventType: ev.EventType(), Reason: "invalid event", Err: err}
	}

	sub, err := s.repo.GetSubscription(ctx, ev.ExternalSubscriptionID)
	if err != nil {
		return "", fmt.Errorf("lookup subscription %s: %w", ev.ExternalSubscriptionID, err)
	}
	if sub == nil {
		log.Infof("[Billing] Subscription %s unknown, nothing to delete", ev.ExternalSubscriptionID)
		return OutcomeNoOp, nil
	}
	if sub.Status == models.BillingStatusCanceled {
		return OutcomeDuplicate, nil
	}

	if err := s.repo.RemoveSubscription(ctx, ev.ExternalSubscriptionID); err != nil {
		return "", fmt.Errorf("remove subscription %s: %w", ev.ExternalSubscriptionID, err)
	}

	owner, err := s.repo.GetUserByID(ctx, sub.UserID)
	switch {
	case err != nil:
		log.Warnf("[Billing] Owner lookup for subscription %s failed: %v", ev.ExternalSubscriptionID, err)
	case owner == nil:
		log.Warnf("[Billing] Subscription %s has no owning user %d", ev.ExternalSubscriptionID, sub.UserID)
	default:
		log.Infof("[Billing] Canceled subscription %s for user %d", ev.ExternalSubscriptionID, owner.ID)
	}
	return OutcomeApplied, nil
}

func (s *Service) notify(ctx context.Context, templateID, recipient string, data map[string]interface{}) {
	if s.notifier == nil || strings.TrimSpace(recipient) == "" {
		return
	}
	s.notifier.Send(ctx, templateID, recipient, data)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
