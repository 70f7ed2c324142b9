package services

import (
	"context"
	"time"

	"subminder/apperror"
	"subminder/models"
)

// SubscriptionStore is what the service needs from persistence.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *models.Subscription) error
	FindByID(ctx context.Context, id string) (*models.Subscription, error)
	ListByOwner(ctx context.Context, ownerID string, status models.SubscriptionStatus) ([]models.Subscription, error)
	Delete(ctx context.Context, id string) error
	UpdateLocked(ctx context.Context, id string, fn func(sub *models.Subscription) (bool, error)) error
}

// SubscriptionService runs entity operations on behalf of an authenticated actor. Every
// operation on an existing subscription fails with a not-found error when it is absent and a
// forbidden error when the actor does not own it.
type SubscriptionService struct {
	store SubscriptionStore
	now   func() time.Time
}

func NewSubscriptionService(store SubscriptionStore) *SubscriptionService {
	return &SubscriptionService{store: store, now: time.Now}
}

// WithClock replaces the wall clock used for mark-paid without an explicit date.
func (s *SubscriptionService) WithClock(clock func() time.Time) *SubscriptionService {
	s.now = clock
	return s
}

func (s *SubscriptionService) Create(ctx context.Context, ownerID string, in models.SubscriptionInput) (*models.Subscription, error) {
	sub, err := models.NewSubscription(ownerID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *SubscriptionService) Get(ctx context.Context, actorID, id string) (*models.Subscription, error) {
	sub, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.IsOwnedBy(actorID) {
		return nil, apperror.Forbidden("you cannot access subscription %s", id)
	}
	return sub, nil
}

func (s *SubscriptionService) List(ctx context.Context, actorID string, status models.SubscriptionStatus) ([]models.Subscription, error) {
	if status != "" && !status.IsValid() {
		return nil, apperror.NewValidation(map[string]string{"status": "Status must be one of Active, Cancelled, Paused, Expired!"})
	}
	return s.store.ListByOwner(ctx, actorID, status)
}

func (s *SubscriptionService) Edit(ctx context.Context, actorID, id string, patch models.SubscriptionPatch) (*models.Subscription, error) {
	return s.mutate(ctx, actorID, id, "edit", func(sub *models.Subscription) error {
		return sub.ApplyPatch(patch)
	})
}

func (s *SubscriptionService) MarkPaid(ctx context.Context, actorID, id string, paidDate *time.Time) (*models.Subscription, error) {
	return s.mutate(ctx, actorID, id, "update", func(sub *models.Subscription) error {
		sub.MarkAsPaid(paidDate, s.now())
		return nil
	})
}

func (s *SubscriptionService) MarkExpired(ctx context.Context, actorID, id string) (*models.Subscription, error) {
	return s.mutate(ctx, actorID, id, "update", func(sub *models.Subscription) error {
		sub.MarkAsExpired()
		return nil
	})
}

func (s *SubscriptionService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.Get(ctx, actorID, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *SubscriptionService) mutate(ctx context.Context, actorID, id, verb string, fn func(sub *models.Subscription) error) (*models.Subscription, error) {
	var updated models.Subscription
	err := s.store.UpdateLocked(ctx, id, func(sub *models.Subscription) (bool, error) {
		if !sub.IsOwnedBy(actorID) {
			return false, apperror.Forbidden("you cannot %s subscription %s", verb, id)
		}
		if err := fn(sub); err != nil {
			return false, err
		}
		updated = *sub
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	updated.Owner = nil
	return &updated, nil
}
