package billing

import (
	"errors"
	"time"

	"github.com/chainletter/ChainLetter/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the billing service. All
// webhook-driven writes go through UpsertByExternalID (or the targeted
// Mark* updates), keyed on stripe_subscription_id, so duplicate and racing
// deliveries converge instead of double-inserting.
type Repository interface {
	GetActiveEntitlement(userID uint) (*models.Subscription, error)
	GetByExternalID(stripeSubscriptionID string) (*models.Subscription, error)
	ListByUser(userID uint) ([]models.Subscription, error)
	UpsertByExternalID(sub *models.Subscription) error
	MarkTerminated(stripeSubscriptionID string, terminatedAt time.Time) error
	MarkPastDue(stripeSubscriptionID string) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

var entitlingStatuses = []string{
	models.SubscriptionStatusActive,
	models.SubscriptionStatusTrialing,
}

// GetActiveEntitlement returns the most relevant active-equivalent row for a
// user, or nil when none exists. Not-found is not an error.
func (r *gormRepository) GetActiveEntitlement(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("user_id = ? AND status IN ?", userID, entitlingStatuses).
		Order("current_period_end DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetByExternalID(stripeSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListByUser(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

func (r *gormRepository) UpsertByExternalID(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_subscription_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id",
			"stripe_customer_id",
			"status",
			"plan_type",
			"price_id",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"raw_payload_json",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("stripe_subscription_id = ?", sub.StripeSubscriptionID).
		First(sub).Error
}

func (r *gormRepository) MarkTerminated(stripeSubscriptionID string, terminatedAt time.Time) error {
	return r.db.Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Updates(map[string]interface{}{
			"status":      models.SubscriptionStatusCanceled,
			"canceled_at": &terminatedAt,
		}).Error
}

func (r *gormRepository) MarkPastDue(stripeSubscriptionID string) error {
	return r.db.Model(&models.Subscription{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Update("status", models.SubscriptionStatusPastDue).Error
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "stripe_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("stripe_event_id = ?", event.StripeEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
