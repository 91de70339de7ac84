package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func TestStripeCustomers_CreateCustomer(t *testing.T) {
	var (
		gotPath        string
		gotIdempotency string
		gotForm        map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIdempotency = r.Header.Get("Idempotency-Key")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"email":             r.PostForm.Get("email"),
			"name":              r.PostForm.Get("name"),
			"metadata[clerkId]": r.PostForm.Get("metadata[clerkId]"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cus_test_1","object":"customer"}`))
	}))
	defer server.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	customers := NewStripeCustomersWithBackend(backend, "sk_test_123")

	id, err := customers.CreateCustomer(context.Background(), "user_1", "a@x.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "cus_test_1", id)
	assert.Equal(t, "/v1/customers", gotPath)
	assert.Equal(t, "clerk-user-created:user_1", gotIdempotency)
	assert.Equal(t, "a@x.com", gotForm["email"])
	assert.Equal(t, "Ada", gotForm["name"])
	assert.Equal(t, "user_1", gotForm["metadata[clerkId]"])
}

func TestStripeCustomers_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad email"}}`))
	}))
	defer server.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})

	_, err := NewStripeCustomersWithBackend(backend, "sk_test_123").CreateCustomer(context.Background(), "user_1", "bad", "")
	assert.Error(t, err)
}

func TestStripeCustomers_MissingKey(t *testing.T) {
	_, err := NewStripeCustomers("").CreateCustomer(context.Background(), "user_1", "", "")
	assert.Error(t, err)
}
