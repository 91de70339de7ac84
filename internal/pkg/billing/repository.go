package billing

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/Lernhub/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence boundary of the reconciliation engine. Keyed
// lookups are exact-match and return (nil, nil) when nothing matches.
type Repository interface {
	GetUserByExternalID(ctx context.Context, externalUserID string) (*models.User, error)
	GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	// InsertUser returns false and the stored row when the external user id already exists.
	InsertUser(ctx context.Context, user *models.User) (bool, *models.User, error)
	SetUserCurrentSubscription(ctx context.Context, userID uint, subscriptionID *uint) error

	GetPurchase(ctx context.Context, userID uint, courseID string) (*models.Purchase, error)
	GetPurchaseByTransactionID(ctx context.Context, transactionID string) (*models.Purchase, error)
	// InsertPurchase returns false when a unique key (transaction id or user+course) already exists.
	InsertPurchase(ctx context.Context, purchase *models.Purchase) (bool, error)

	UpsertSubscription(ctx context.Context, sub *models.BillingSubscription) error
	GetSubscription(ctx context.Context, providerSubscriptionID string) (*models.BillingSubscription, error)
	GetSubscriptionByID(ctx context.Context, id uint) (*models.BillingSubscription, error)
	RemoveSubscription(ctx context.Context, providerSubscriptionID string) error

	CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func firstOrNil[T any](tx *gorm.DB) (*T, error) {
	var out T
	if err := tx.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *gormRepository) GetUserByExternalID(ctx context.Context, externalUserID string) (*models.User, error) {
	return firstOrNil[models.User](r.db.WithContext(ctx).Where("external_user_id = ?", externalUserID))
}

func (r *gormRepository) GetUserByCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	return firstOrNil[models.User](r.db.WithContext(ctx).Where("customer_id = ?", customerID))
}

func (r *gormRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return firstOrNil[models.User](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *gormRepository) InsertUser(ctx context.Context, user *models.User) (bool, *models.User, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user)
	if tx.Error != nil {
		return false, nil, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, user, nil
	}

	stored, err := r.GetUserByExternalID(ctx, user.ExternalUserID)
	if err != nil {
		return false, nil, err
	}
	if stored == nil {
		// Conflict on customer_id alone: a different identity already owns this customer.
		return false, nil, &ReconciliationError{
			EventType: EventIdentityUserCreated,
			Reason:    "customer " + user.CustomerID + " already belongs to another user",
		}
	}
	return false, stored, nil
}

func (r *gormRepository) SetUserCurrentSubscription(ctx context.Context, userID uint, subscriptionID *uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"current_subscription_id": subscriptionID,
			"updated_at":              time.Now(),
		}).Error
}

func (r *gormRepository) GetPurchase(ctx context.Context, userID uint, courseID string) (*models.Purchase, error) {
	return firstOrNil[models.Purchase](r.db.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID))
}

func (r *gormRepository) GetPurchaseByTransactionID(ctx context.Context, transactionID string) (*models.Purchase, error) {
	return firstOrNil[models.Purchase](r.db.WithContext(ctx).Where("transaction_id = ?", transactionID))
}

func (r *gormRepository) InsertPurchase(ctx context.Context, purchase *models.Purchase) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(purchase)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) UpsertSubscription(ctx context.Context, sub *models.BillingSubscription) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"status",
			"billing_interval",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return db.Where("provider_subscription_id = ?", sub.ProviderSubscriptionID).First(sub).Error
}

func (r *gormRepository) GetSubscription(ctx context.Context, providerSubscriptionID string) (*models.BillingSubscription, error) {
	return firstOrNil[models.BillingSubscription](r.db.WithContext(ctx).Where("provider_subscription_id = ?", providerSubscriptionID))
}

func (r *gormRepository) GetSubscriptionByID(ctx context.Context, id uint) (*models.BillingSubscription, error) {
	return firstOrNil[models.BillingSubscription](r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *gormRepository) RemoveSubscription(ctx context.Context, providerSubscriptionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.BillingSubscription
		if err := tx.Where("provider_subscription_id = ?", providerSubscriptionID).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Model(&models.BillingSubscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]interface{}{
				"status":     models.BillingStatusCanceled,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("current_subscription_id = ?", sub.ID).
			Update("current_subscription_id", nil).Error
	})
}

func (r *gormRepository) CreateWebhookEventIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	db := r.db.WithContext(ctx)
	tx := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(ctx context.Context, id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.WithContext(ctx).Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
