package entitlements

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Lernhub/app/models"
)

type memStore struct {
	users         map[uint]*models.User
	subscriptions map[uint]*models.BillingSubscription
	purchases     map[string]*models.Purchase
	err           error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[uint]*models.User{},
		subscriptions: map[uint]*models.BillingSubscription{},
		purchases:     map[string]*models.Purchase{},
	}
}

func purchaseKey(userID uint, courseID string) string {
	return fmt.Sprintf("%d/%s", userID, courseID)
}

func (m *memStore) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[id], nil
}

func (m *memStore) GetUserByExternalID(_ context.Context, externalUserID string) (*models.User, error) {
	for _, u := range m.users {
		if u.ExternalUserID == externalUserID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetSubscriptionByID(_ context.Context, id uint) (*models.BillingSubscription, error) {
	return m.subscriptions[id], nil
}

func (m *memStore) GetPurchase(_ context.Context, userID uint, courseID string) (*models.Purchase, error) {
	return m.purchases[purchaseKey(userID, courseID)], nil
}

func (m *memStore) addUser(id uint, external string) *models.User {
	u := &models.User{ID: id, ExternalUserID: external, CustomerID: "cus_" + external}
	m.users[id] = u
	return u
}

func (m *memStore) subscribe(u *models.User, subID uint, status string) {
	m.subscriptions[subID] = &models.BillingSubscription{ID: subID, UserID: u.ID, Status: status}
	u.CurrentSubscriptionID = &subID
}

func (m *memStore) purchase(u *models.User, courseID string) {
	m.purchases[purchaseKey(u.ID, courseID)] = &models.Purchase{UserID: u.ID, CourseID: courseID}
}

func TestEvaluate_RequiresCaller(t *testing.T) {
	e := NewEvaluator(newMemStore())

	_, err := e.Evaluate(context.Background(), "", 1, "c1")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = e.EvaluateForSubject(context.Background(), "", "c1")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestEvaluate_UnknownUser(t *testing.T) {
	e := NewEvaluator(newMemStore())

	_, err := e.Evaluate(context.Background(), "user_caller", 42, "c1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = e.EvaluateForSubject(context.Background(), "user_missing", "c1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestEvaluate_Precedence(t *testing.T) {
	store := newMemStore()

	subscribed := store.addUser(1, "u_sub")
	store.subscribe(subscribed, 10, models.BillingStatusActive)

	buyer := store.addUser(2, "u_buyer")
	store.purchase(buyer, "c1")

	both := store.addUser(3, "u_both")
	store.subscribe(both, 11, models.BillingStatusActive)
	store.purchase(both, "c1")

	lapsed := store.addUser(4, "u_lapsed")
	store.subscribe(lapsed, 12, models.BillingStatusCanceled)

	lapsedBuyer := store.addUser(5, "u_lapsed_buyer")
	store.subscribe(lapsedBuyer, 13, models.BillingStatusPastDue)
	store.purchase(lapsedBuyer, "c1")

	store.addUser(6, "u_none")

	tests := []struct {
		name     string
		userID   uint
		courseID string
		want     Access
	}{
		{"active subscription without purchase", 1, "c1", Access{Granted: true, GrantType: GrantSubscription}},
		{"purchase without subscription", 2, "c1", Access{Granted: true, GrantType: GrantCourse}},
		{"purchase of another course", 2, "c2", Access{Granted: false, GrantType: GrantNone}},
		{"subscription short-circuits purchase", 3, "c1", Access{Granted: true, GrantType: GrantSubscription}},
		{"canceled subscription", 4, "c1", Access{Granted: false, GrantType: GrantNone}},
		{"past due subscription falls back to purchase", 5, "c1", Access{Granted: true, GrantType: GrantCourse}},
		{"neither", 6, "c1", Access{Granted: false, GrantType: GrantNone}},
	}

	e := NewEvaluator(store)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(context.Background(), "user_caller", tt.userID, tt.courseID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_DanglingSubscriptionPointer(t *testing.T) {
	store := newMemStore()
	u := store.addUser(1, "u1")
	missing := uint(99)
	u.CurrentSubscriptionID = &missing

	got, err := NewEvaluator(store).Evaluate(context.Background(), "user_caller", 1, "c1")
	require.NoError(t, err)
	assert.False(t, got.Granted)
}

func TestEvaluateForSubject(t *testing.T) {
	store := newMemStore()
	u := store.addUser(1, "user_abc")
	store.purchase(u, "c7")

	got, err := NewEvaluator(store).EvaluateForSubject(context.Background(), "user_abc", "c7")
	require.NoError(t, err)
	assert.Equal(t, Access{Granted: true, GrantType: GrantCourse}, got)
}

func TestEvaluate_StoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")

	_, err := NewEvaluator(store).Evaluate(context.Background(), "user_caller", 1, "c1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "connection refused")
}
