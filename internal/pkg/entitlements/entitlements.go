package entitlements

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuelReschke/Lernhub/app/models"
)

// GrantType names how course access was granted.
type GrantType string

const (
	GrantSubscription GrantType = "subscription"
	GrantCourse       GrantType = "course"
	GrantNone         GrantType = ""
)

var (
	ErrUnauthorized = errors.New("entitlements: caller identity required")
	ErrUserNotFound = errors.New("entitlements: user not found")
)

// Access is the answer of an access check.
type Access struct {
	Granted   bool      `json:"has_access"`
	GrantType GrantType `json:"access_type"`
}

// AccessStore is the read side the evaluator needs. billing.Repository satisfies it.
type AccessStore interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByExternalID(ctx context.Context, externalUserID string) (*models.User, error)
	GetSubscriptionByID(ctx context.Context, id uint) (*models.BillingSubscription, error)
	GetPurchase(ctx context.Context, userID uint, courseID string) (*models.Purchase, error)
}

// Evaluator answers course access questions. It owns no state.
type Evaluator struct {
	store AccessStore
}

func NewEvaluator(store AccessStore) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate checks whether userID may access courseID. An active current
// subscription wins over a per-course purchase and needs no purchase row.
func (e *Evaluator) Evaluate(ctx context.Context, callerSubject string, userID uint, courseID string) (Access, error) {
	if callerSubject == "" {
		return Access{}, ErrUnauthorized
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return Access{}, fmt.Errorf("load user %d: %w", userID, err)
	}
	if user == nil {
		return Access{}, ErrUserNotFound
	}

	return e.evaluateUser(ctx, user, courseID)
}

// EvaluateForSubject resolves the caller's own user by identity subject and evaluates access for it.
func (e *Evaluator) EvaluateForSubject(ctx context.Context, callerSubject, courseID string) (Access, error) {
	if callerSubject == "" {
		return Access{}, ErrUnauthorized
	}

	user, err := e.store.GetUserByExternalID(ctx, callerSubject)
	if err != nil {
		return Access{}, fmt.Errorf("load user %q: %w", callerSubject, err)
	}
	if user == nil {
		return Access{}, ErrUserNotFound
	}

	return e.evaluateUser(ctx, user, courseID)
}

func (e *Evaluator) evaluateUser(ctx context.Context, user *models.User, courseID string) (Access, error) {
	if user.HasCurrentSubscription() {
		sub, err := e.store.GetSubscriptionByID(ctx, *user.CurrentSubscriptionID)
		if err != nil {
			return Access{}, fmt.Errorf("load subscription %d: %w", *user.CurrentSubscriptionID, err)
		}
		if sub.IsActive() {
			return Access{Granted: true, GrantType: GrantSubscription}, nil
		}
	}

	purchase, err := e.store.GetPurchase(ctx, user.ID, courseID)
	if err != nil {
		return Access{}, fmt.Errorf("load purchase: %w", err)
	}
	if purchase != nil {
		return Access{Granted: true, GrantType: GrantCourse}, nil
	}

	return Access{Granted: false, GrantType: GrantNone}, nil
}
