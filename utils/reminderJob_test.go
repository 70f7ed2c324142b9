package utils

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subminder/apperror"
	"subminder/logger"
	"subminder/models"
	"subminder/testutil"
)

type stubNotifier struct {
	mu      sync.Mutex
	sent    []models.ReminderNotice
	failFor map[string]error
}

func (n *stubNotifier) Send(ctx context.Context, notice models.ReminderNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.failFor[notice.SubscriptionID]; err != nil {
		return err
	}
	n.sent = append(n.sent, notice)
	return nil
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *stubNotifier) last() models.ReminderNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}

// monthly subscription started 2024-01-01, due 2024-02-01, reminders from 2024-01-29
func newJobSubscription(t *testing.T, name string) *models.Subscription {
	t.Helper()
	sub, err := models.NewSubscription("owner-1", models.SubscriptionInput{
		PlatformName: name,
		Amount:       decimal.NewFromInt(649),
		Currency:     models.CurrencyINR,
		BillingCycle: models.CycleMonthly,
		StartDate:    at(2024, time.January, 1, 0),
	})
	require.NoError(t, err)
	sub.Owner = &models.User{ID: "owner-1", Username: "asha", Email: "asha@example.com"}
	return sub
}

func newTestJob(store ReminderStore, notifier Notifier, opts ReminderJobOptions) *ReminderJob {
	return NewReminderJob(store, notifier, NewLocalRunLock(), logger.NewNop(), opts)
}

func TestReminderJob_TiersAcrossTheWindow(t *testing.T) {
	sub := newJobSubscription(t, "netflix")
	store := testutil.NewInMemorySubscriptionStore(sub)
	notifier := &stubNotifier{}
	job := newTestJob(store, notifier, ReminderJobOptions{Workers: 2, MarkOnFailure: true})
	ctx := context.Background()

	report, err := job.Run(ctx, at(2024, time.January, 28, 8))
	require.NoError(t, err)
	assert.Equal(t, RunReport{Scanned: 1, Skipped: 1}, report)
	assert.Equal(t, 0, notifier.count())

	cases := []struct {
		day      int
		month    time.Month
		tier     models.ReminderTier
		daysLeft int
	}{
		{29, time.January, models.TierEarly, 3},
		{30, time.January, models.TierEarly, 2},
		{31, time.January, models.TierOneDay, 1},
		{1, time.February, models.TierDueToday, 0},
	}
	for i, tc := range cases {
		report, err := job.Run(ctx, at(2024, tc.month, tc.day, 8))
		require.NoError(t, err)
		assert.Equal(t, 1, report.Dispatched, "day %d", tc.day)
		require.Equal(t, i+1, notifier.count())

		notice := notifier.last()
		assert.Equal(t, tc.tier, notice.Tier)
		assert.Equal(t, tc.daysLeft, notice.DaysLeft)
		assert.Equal(t, "asha@example.com", notice.RecipientEmail)
		assert.Equal(t, "Netflix", notice.PlatformName)
	}

	report, err = job.Run(ctx, at(2024, time.February, 2, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 4, notifier.count())
}

func TestReminderJob_SecondRunSameDaySendsNothing(t *testing.T) {
	sub := newJobSubscription(t, "netflix")
	store := testutil.NewInMemorySubscriptionStore(sub)
	notifier := &stubNotifier{}
	job := newTestJob(store, notifier, ReminderJobOptions{MarkOnFailure: true})
	ctx := context.Background()

	_, err := job.Run(ctx, at(2024, time.January, 29, 8))
	require.NoError(t, err)

	report, err := job.Run(ctx, at(2024, time.January, 29, 20))
	require.NoError(t, err)
	assert.Equal(t, RunReport{Scanned: 1, Skipped: 1}, report)
	assert.Equal(t, 1, notifier.count())

	stored, ok := store.Get(sub.ID)
	require.True(t, ok)
	require.NotNil(t, stored.LastReminderSent)
	assert.True(t, stored.LastReminderSent.Equal(at(2024, time.January, 29, 8)))
}

func TestReminderJob_FailureIsolation(t *testing.T) {
	for _, markOnFailure := range []bool{true, false} {
		t.Run(fmt.Sprintf("markOnFailure=%v", markOnFailure), func(t *testing.T) {
			good := newJobSubscription(t, "netflix")
			bad := newJobSubscription(t, "spotify")
			store := testutil.NewInMemorySubscriptionStore(good, bad)
			notifier := &stubNotifier{failFor: map[string]error{bad.ID: errors.New("smtp: 550 mailbox unavailable")}}
			job := newTestJob(store, notifier, ReminderJobOptions{Workers: 2, MarkOnFailure: markOnFailure})

			report, err := job.Run(context.Background(), at(2024, time.January, 29, 8))
			require.NoError(t, err)
			assert.Equal(t, 2, report.Scanned)
			assert.Equal(t, 1, report.Dispatched)
			assert.Equal(t, 1, report.DispatchFailed)
			assert.Equal(t, 0, report.PersistFailed)

			storedGood, _ := store.Get(good.ID)
			assert.NotNil(t, storedGood.LastReminderSent)

			storedBad, _ := store.Get(bad.ID)
			if markOnFailure {
				assert.NotNil(t, storedBad.LastReminderSent)
			} else {
				assert.Nil(t, storedBad.LastReminderSent)
			}
		})
	}
}

func TestReminderJob_RetriesFailedSendWhenNotMarked(t *testing.T) {
	sub := newJobSubscription(t, "netflix")
	store := testutil.NewInMemorySubscriptionStore(sub)
	notifier := &stubNotifier{failFor: map[string]error{sub.ID: errors.New("timeout")}}
	job := newTestJob(store, notifier, ReminderJobOptions{MarkOnFailure: false})
	ctx := context.Background()

	report, err := job.Run(ctx, at(2024, time.January, 29, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.DispatchFailed)

	notifier.mu.Lock()
	notifier.failFor = nil
	notifier.mu.Unlock()

	report, err = job.Run(ctx, at(2024, time.January, 29, 9))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Dispatched)
	assert.Equal(t, 1, notifier.count())
}

func TestReminderJob_PersistFailureDoesNotStopTheScan(t *testing.T) {
	first := newJobSubscription(t, "netflix")
	second := newJobSubscription(t, "spotify")
	store := testutil.NewInMemorySubscriptionStore(first, second)
	store.SaveErr[first.ID] = errors.New("connection reset")
	notifier := &stubNotifier{}
	job := newTestJob(store, notifier, ReminderJobOptions{MarkOnFailure: true})

	report, err := job.Run(context.Background(), at(2024, time.January, 29, 8))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Dispatched)
	assert.Equal(t, 1, report.PersistFailed)

	storedFirst, _ := store.Get(first.ID)
	assert.Nil(t, storedFirst.LastReminderSent)
	storedSecond, _ := store.Get(second.ID)
	assert.NotNil(t, storedSecond.LastReminderSent)
}

func TestReminderJob_LoadFailureAborts(t *testing.T) {
	store := testutil.NewInMemorySubscriptionStore(newJobSubscription(t, "netflix"))
	store.LoadErr = errors.New("database is down")
	notifier := &stubNotifier{}
	job := newTestJob(store, notifier, ReminderJobOptions{})

	report, err := job.Run(context.Background(), at(2024, time.January, 29, 8))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrPersistence))
	assert.Equal(t, RunReport{}, report)
	assert.Equal(t, 0, notifier.count())
}

func TestReminderJob_OverlappingRunIsRejected(t *testing.T) {
	lock := NewLocalRunLock()
	release, ok, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	notifier := &stubNotifier{}
	job := NewReminderJob(testutil.NewInMemorySubscriptionStore(newJobSubscription(t, "netflix")), notifier, lock, logger.NewNop(), ReminderJobOptions{})

	_, err = job.Run(context.Background(), at(2024, time.January, 29, 8))
	assert.True(t, errors.Is(err, apperror.ErrRunInProgress))
	assert.Equal(t, 0, notifier.count())

	release()
	_, err = job.Run(context.Background(), at(2024, time.January, 29, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.count())
}

func TestReminderJob_AutoExpire(t *testing.T) {
	sub := newJobSubscription(t, "netflix")
	store := testutil.NewInMemorySubscriptionStore(sub)
	notifier := &stubNotifier{}
	ctx := context.Background()

	off := newTestJob(store, notifier, ReminderJobOptions{})
	report, err := off.Run(ctx, at(2024, time.February, 20, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	stored, _ := store.Get(sub.ID)
	assert.Equal(t, models.StatusActive, stored.Status)

	on := newTestJob(store, notifier, ReminderJobOptions{AutoExpireAfterDays: 7})

	// eight days overdue is past the grace period, seven is not
	report, err = on.Run(ctx, at(2024, time.February, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	report, err = on.Run(ctx, at(2024, time.February, 9, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	stored, _ = store.Get(sub.ID)
	assert.Equal(t, models.StatusExpired, stored.Status)
	assert.Equal(t, 0, notifier.count())
}

func TestReminderJob_ManySubscriptionsEachSentOnce(t *testing.T) {
	subs := make([]*models.Subscription, 0, 50)
	for i := 0; i < 50; i++ {
		subs = append(subs, newJobSubscription(t, fmt.Sprintf("service-%d", i)))
	}
	store := testutil.NewInMemorySubscriptionStore(subs...)
	notifier := &stubNotifier{}
	job := newTestJob(store, notifier, ReminderJobOptions{Workers: 8, MarkOnFailure: true})

	report, err := job.Run(context.Background(), at(2024, time.January, 31, 8))
	require.NoError(t, err)
	assert.Equal(t, 50, report.Scanned)
	assert.Equal(t, 50, report.Dispatched)
	assert.Equal(t, 50, notifier.count())

	seen := make(map[string]bool)
	for _, n := range notifier.sent {
		assert.False(t, seen[n.SubscriptionID], "duplicate reminder for %s", n.SubscriptionID)
		seen[n.SubscriptionID] = true
		assert.Equal(t, models.TierOneDay, n.Tier)
	}
}

func TestLocalRunLock_Reacquire(t *testing.T) {
	lock := NewLocalRunLock()

	release, ok, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	release2, ok, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}
