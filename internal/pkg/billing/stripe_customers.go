package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuelReschke/Lernhub/internal/pkg/env"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
)

// StripeCustomers provisions Stripe customers for newly created users.
type StripeCustomers struct {
	client customer.Client
}

func NewStripeCustomers(secretKey string) *StripeCustomers {
	return NewStripeCustomersWithBackend(stripe.GetBackend(stripe.APIBackend), secretKey)
}

// NewStripeCustomersWithBackend uses an explicit API backend, e.g. one pointed at stripe-mock.
func NewStripeCustomersWithBackend(backend stripe.Backend, secretKey string) *StripeCustomers {
	return &StripeCustomers{
		client: customer.Client{B: backend, Key: strings.TrimSpace(secretKey)},
	}
}

func NewStripeCustomersFromEnv() *StripeCustomers {
	return NewStripeCustomers(env.GetEnv("STRIPE_SECRET_KEY", ""))
}

// CreateCustomer creates the customer with the identity-provider id in its
// metadata. The idempotency key makes provider-side retries return the same
// customer instead of a second one.
func (c *StripeCustomers) CreateCustomer(ctx context.Context, externalUserID, email, name string) (string, error) {
	if c.client.Key == "" {
		return "", errors.New("STRIPE_SECRET_KEY is not configured")
	}

	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.AddMetadata("clerkId", externalUserID)
	params.SetIdempotencyKey("clerk-user-created:" + externalUserID)

	cus, err := c.client.New(params)
	if err != nil {
		return "", err
	}
	return cus.ID, nil
}
