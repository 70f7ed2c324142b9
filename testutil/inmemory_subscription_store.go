package testutil

import (
	"context"
	"sort"
	"sync"

	"subminder/apperror"
	"subminder/models"
)

// InMemorySubscriptionStore is a goroutine-safe stand-in for the gorm repository in reminder
// job tests. Per-record updates are serialized by a single mutex.
type InMemorySubscriptionStore struct {
	mu    sync.Mutex
	items map[string]models.Subscription

	LoadErr   error
	SaveErr   map[string]error
	SaveCalls int
}

func NewInMemorySubscriptionStore(subs ...*models.Subscription) *InMemorySubscriptionStore {
	s := &InMemorySubscriptionStore{
		items:   make(map[string]models.Subscription),
		SaveErr: make(map[string]error),
	}
	for _, sub := range subs {
		s.items[sub.ID] = *sub
	}
	return s
}

func (s *InMemorySubscriptionStore) FindActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, apperror.Persistence(s.LoadErr, "load active subscriptions")
	}

	out := make([]models.Subscription, 0, len(s.items))
	for _, sub := range s.items {
		if sub.Status == models.StatusActive {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemorySubscriptionStore) UpdateLocked(ctx context.Context, id string, fn func(sub *models.Subscription) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.items[id]
	if !ok {
		return apperror.NotFound("subscription %s not found", id)
	}

	changed, err := fn(&sub)
	if err != nil || !changed {
		return err
	}

	s.SaveCalls++
	if saveErr := s.SaveErr[id]; saveErr != nil {
		return apperror.Persistence(saveErr, "save subscription %s", id)
	}
	s.items[id] = sub
	return nil
}

// Get returns a copy of the stored record.
func (s *InMemorySubscriptionStore) Get(id string) (models.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.items[id]
	return sub, ok
}
