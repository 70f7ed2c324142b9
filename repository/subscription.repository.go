package repository

import (
	"context"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"subminder/apperror"
	"subminder/models"
)

// SubscriptionRepository is the gorm-backed subscription store.
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(sub).Error; err != nil {
		return apperror.Persistence(err, "create subscription")
	}
	return nil
}

func (r *SubscriptionRepository) FindByID(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		return nil, translate(err, "subscription %s", id)
	}
	return &sub, nil
}

// ListByOwner returns the owner's subscriptions, soonest billing first. An empty status
// returns every status.
func (r *SubscriptionRepository) ListByOwner(ctx context.Context, ownerID string, status models.SubscriptionStatus) ([]models.Subscription, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	subs := make([]models.Subscription, 0)
	if err := query.Order("next_billing_date ASC").Find(&subs).Error; err != nil {
		return nil, apperror.Persistence(err, "list subscriptions of %s", ownerID)
	}
	return subs, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscription{})
	if result.Error != nil {
		return apperror.Persistence(result.Error, "delete subscription %s", id)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("subscription %s not found", id)
	}
	return nil
}

// FindActiveSubscriptions loads every Active subscription with its owner's contact details.
func (r *SubscriptionRepository) FindActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	subs := make([]models.Subscription, 0)
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusActive).
		Preload("Owner").
		Order("next_billing_date ASC").
		Find(&subs).Error; err != nil {
		return nil, apperror.Persistence(err, "load active subscriptions")
	}
	return subs, nil
}

// UpdateLocked reloads the subscription inside a transaction, holding a row lock where the
// dialect supports it, and hands it to fn. The row is saved only when fn reports a change.
// An error from fn rolls the transaction back and is returned as is.
func (r *SubscriptionRepository) UpdateLocked(ctx context.Context, id string, fn func(sub *models.Subscription) (bool, error)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var sub models.Subscription
		if err := query.Preload("Owner").Where("id = ?", id).First(&sub).Error; err != nil {
			return translate(err, "subscription %s", id)
		}

		changed, err := fn(&sub)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := tx.Omit(clause.Associations).Save(&sub).Error; err != nil {
			return apperror.Persistence(err, "save subscription %s", id)
		}
		return nil
	})
}

func translate(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(format+" not found", args...)
	}
	return apperror.Persistence(err, format, args...)
}
