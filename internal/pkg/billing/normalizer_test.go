package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Lernhub/app/models"
)

func stripeEvent(eventType, object string) *VerifiedEvent {
	return &VerifiedEvent{Provider: models.WebhookProviderStripe, ID: "evt_1", Type: eventType, Payload: json.RawMessage(object)}
}

func TestNormalize_ClerkUserCreated(t *testing.T) {
	ev := &VerifiedEvent{
		Provider: models.WebhookProviderClerk,
		ID:       "msg_1",
		Type:     ClerkUserCreated,
		Payload: json.RawMessage(`{
			"id": "user_1",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"email_addresses": [{"email_address": "a@x.com"}, {"email_address": "other@x.com"}]
		}`),
	}

	got, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, IdentityUserCreated{ExternalUserID: "user_1", Email: "a@x.com", DisplayName: "Ada Lovelace"}, got)
}

func TestNormalize_ClerkUserWithoutNameOrEmail(t *testing.T) {
	ev := &VerifiedEvent{Provider: models.WebhookProviderClerk, Type: ClerkUserCreated, Payload: json.RawMessage(`{"id":"user_2","first_name":"Ada"}`)}

	got, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, IdentityUserCreated{ExternalUserID: "user_2", DisplayName: "Ada"}, got)
}

func TestNormalize_ClerkOtherTypes(t *testing.T) {
	ev := &VerifiedEvent{Provider: models.WebhookProviderClerk, Type: "user.updated", Payload: json.RawMessage(`{}`)}

	got, err := Normalize(ev)
	require.NoError(t, err)
	assert.Equal(t, NoOp{Type: "user.updated"}, got)
}

func TestNormalize_CheckoutCompleted(t *testing.T) {
	got, err := Normalize(stripeEvent(StripeCheckoutSessionComplete, `{
		"id": "cs_1",
		"customer": "cus_1",
		"amount_total": 1999,
		"metadata": {"courseId": "c1", "courseTitle": "Go Basics", "courseImageUrl": "https://img/c1.png"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, CheckoutCompleted{
		ExternalCustomerID:    "cus_1",
		CourseID:              "c1",
		AmountTotal:           1999,
		ExternalTransactionID: "cs_1",
		Course:                CourseMetadata{Title: "Go Basics", ImageURL: "https://img/c1.png"},
	}, got)
}

func TestNormalize_CheckoutExpandedCustomer(t *testing.T) {
	got, err := Normalize(stripeEvent(StripeCheckoutSessionComplete, `{"id":"cs_2","customer":{"id":"cus_9","object":"customer"},"metadata":{}}`))
	require.NoError(t, err)

	checkout := got.(CheckoutCompleted)
	assert.Equal(t, "cus_9", checkout.ExternalCustomerID)
	assert.Empty(t, checkout.CourseID)
	assert.Zero(t, checkout.AmountTotal)
}

func TestNormalize_SubscriptionCreated(t *testing.T) {
	got, err := Normalize(stripeEvent(StripeSubscriptionCreated, `{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"cancel_at_period_end": false,
		"current_period_start": 1700000000,
		"current_period_end": 1702592000,
		"latest_invoice": "in_1",
		"items": {"data": [{"plan": {"interval": "month"}}]}
	}`))
	require.NoError(t, err)

	sub := got.(SubscriptionUpserted)
	assert.Equal(t, "cus_1", sub.ExternalCustomerID)
	assert.Equal(t, "sub_1", sub.ExternalSubscriptionID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, models.BillingIntervalMonth, sub.PlanInterval)
	require.NotNil(t, sub.PeriodStart)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *sub.PeriodStart)
	assert.Equal(t, time.Unix(1702592000, 0).UTC(), *sub.PeriodEnd)
	assert.True(t, sub.HasLatestInvoice)
	assert.True(t, sub.IsCreationEvent)
}

func TestNormalize_SubscriptionUpdatedItemLevelFields(t *testing.T) {
	got, err := Normalize(stripeEvent(StripeSubscriptionUpdated, `{
		"id": "sub_1",
		"customer": {"id": "cus_1"},
		"status": "Past_Due",
		"cancel_at_period_end": true,
		"latest_invoice": null,
		"items": {"data": [{
			"current_period_start": 1700000000,
			"current_period_end": 1731536000,
			"price": {"recurring": {"interval": "year"}}
		}]}
	}`))
	require.NoError(t, err)

	sub := got.(SubscriptionUpserted)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, models.BillingIntervalYear, sub.PlanInterval)
	assert.Equal(t, time.Unix(1731536000, 0).UTC(), *sub.PeriodEnd)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.False(t, sub.HasLatestInvoice)
	assert.False(t, sub.IsCreationEvent)
}

func TestNormalize_SubscriptionWithoutItems(t *testing.T) {
	got, err := Normalize(stripeEvent(StripeSubscriptionUpdated, `{"id":"sub_1","customer":"cus_1","status":"incomplete"}`))
	require.NoError(t, err)

	sub := got.(SubscriptionUpserted)
	assert.Equal(t, models.BillingIntervalUnknown, sub.PlanInterval)
	assert.Nil(t, sub.PeriodStart)
	assert.Nil(t, sub.PeriodEnd)
}

func TestNormalize_SubscriptionDeleted(t *testing.T) {
	got, err := Normalize(stripeEvent(StripeSubscriptionDeleted, `{"id":"sub_1","status":"canceled"}`))
	require.NoError(t, err)
	assert.Equal(t, SubscriptionDeleted{ExternalSubscriptionID: "sub_1"}, got)
}

func TestNormalize_UnknownStripeType(t *testing.T) {
	got, err := Normalize(stripeEvent("invoice.paid", `{"id":"in_1"}`))
	require.NoError(t, err)
	assert.Equal(t, NoOp{Type: "invoice.paid"}, got)
	assert.Equal(t, EventNoOp, got.EventType())
}

func TestNormalize_UndecodablePayload(t *testing.T) {
	for _, eventType := range []string{StripeCheckoutSessionComplete, StripeSubscriptionCreated, StripeSubscriptionDeleted} {
		t.Run(eventType, func(t *testing.T) {
			_, err := Normalize(stripeEvent(eventType, `["not","an","object"]`))
			require.Error(t, err)
			assert.True(t, IsReconciliationError(err))
		})
	}

	_, err := Normalize(&VerifiedEvent{Provider: models.WebhookProviderClerk, Type: ClerkUserCreated, Payload: json.RawMessage(`"nope"`)})
	assert.True(t, IsReconciliationError(err))
}

func TestNormalize_NilAndUnknownProvider(t *testing.T) {
	_, err := Normalize(nil)
	assert.True(t, IsReconciliationError(err))

	got, err := Normalize(&VerifiedEvent{Provider: "paypal", Type: "sale.completed"})
	require.NoError(t, err)
	assert.Equal(t, NoOp{Type: "paypal:sale.completed"}, got)
}

func TestNormalizeInterval(t *testing.T) {
	assert.Equal(t, models.BillingIntervalMonth, normalizeInterval(" Month "))
	assert.Equal(t, models.BillingIntervalYear, normalizeInterval("year"))
	assert.Equal(t, models.BillingIntervalUnknown, normalizeInterval("week"))
	assert.Equal(t, models.BillingIntervalUnknown, normalizeInterval(""))
}

func TestIsEntitlingStatus(t *testing.T) {
	assert.True(t, isEntitlingStatus("active"))
	assert.True(t, isEntitlingStatus(" ACTIVE "))
	for _, s := range []string{"trialing", "incomplete", "past_due", "canceled", "unpaid", ""} {
		assert.False(t, isEntitlingStatus(s), s)
	}
}
