package utils

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"subminder/apperror"
	"subminder/logger"
	"subminder/models"
)

// ReminderStore is the slice of the subscription repository the job needs.
type ReminderStore interface {
	FindActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	UpdateLocked(ctx context.Context, id string, fn func(sub *models.Subscription) (bool, error)) error
}

// Notifier delivers one reminder to one owner.
type Notifier interface {
	Send(ctx context.Context, notice models.ReminderNotice) error
}

type ReminderJobOptions struct {
	Workers int
	// MarkOnFailure stamps LastReminderSent even when the send failed, so a broken mailbox is
	// not retried until tomorrow.
	MarkOnFailure bool
	// AutoExpireAfterDays expires Active subscriptions whose due date is more than this many
	// days in the past. Zero disables it.
	AutoExpireAfterDays int
}

// RunReport summarizes one pass over the active subscriptions.
type RunReport struct {
	Scanned        int `json:"scanned"`
	Dispatched     int `json:"dispatched"`
	DispatchFailed int `json:"dispatchFailed"`
	Skipped        int `json:"skipped"`
	Expired        int `json:"expired"`
	PersistFailed  int `json:"persistFailed"`
}

type ReminderJob struct {
	store    ReminderStore
	notifier Notifier
	lock     RunLock
	log      *logger.Logger
	opts     ReminderJobOptions
}

func NewReminderJob(store ReminderStore, notifier Notifier, lock RunLock, log *logger.Logger, opts ReminderJobOptions) *ReminderJob {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.AutoExpireAfterDays < 0 {
		opts.AutoExpireAfterDays = 0
	}
	if lock == nil {
		lock = NewLocalRunLock()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ReminderJob{store: store, notifier: notifier, lock: lock, log: log, opts: opts}
}

type runCounters struct {
	scanned, dispatched, dispatchFailed, skipped, expired, persistFailed atomic.Int64
}

func (c *runCounters) report() RunReport {
	return RunReport{
		Scanned:        int(c.scanned.Load()),
		Dispatched:     int(c.dispatched.Load()),
		DispatchFailed: int(c.dispatchFailed.Load()),
		Skipped:        int(c.skipped.Load()),
		Expired:        int(c.expired.Load()),
		PersistFailed:  int(c.persistFailed.Load()),
	}
}

// Run sends every reminder owed on the calendar day of now. A second run on the same day sends
// nothing new. Individual send or save failures are logged and counted; only a failure to load
// the subscriptions aborts the run.
func (j *ReminderJob) Run(ctx context.Context, now time.Time) (RunReport, error) {
	release, ok, err := j.lock.TryAcquire(ctx)
	if err != nil {
		return RunReport{}, errors.Wrap(err, "acquire reminder run lock")
	}
	if !ok {
		return RunReport{}, apperror.ErrRunInProgress
	}
	defer release()

	subs, err := j.store.FindActiveSubscriptions(ctx)
	if err != nil {
		j.log.Errorw("reminder run aborted, could not load subscriptions", "error", err)
		return RunReport{}, err
	}

	j.log.Infow("reminder run started", "candidates", len(subs), "date", now.Format("2006-01-02"))

	var counters runCounters
	p := pool.New().WithMaxGoroutines(j.opts.Workers)
	for i := range subs {
		id := subs[i].ID
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			counters.scanned.Add(1)
			j.process(ctx, id, now, &counters)
		})
	}
	p.Wait()

	report := counters.report()
	j.log.Infow("reminder run finished",
		"scanned", report.Scanned,
		"dispatched", report.Dispatched,
		"dispatchFailed", report.DispatchFailed,
		"skipped", report.Skipped,
		"expired", report.Expired,
		"persistFailed", report.PersistFailed,
	)
	return report, ctx.Err()
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeExpired
	outcomeDispatched
	outcomeDispatchFailed
)

func (j *ReminderJob) process(ctx context.Context, id string, now time.Time, counters *runCounters) {
	result := outcomeSkipped

	err := j.store.UpdateLocked(ctx, id, func(sub *models.Subscription) (bool, error) {
		result = outcomeSkipped

		// the row may have changed since the scan
		if sub.Status != models.StatusActive {
			return false, nil
		}

		if j.opts.AutoExpireAfterDays > 0 && models.DaysUntil(now, sub.NextBillingDate) < -j.opts.AutoExpireAfterDays {
			sub.MarkAsExpired()
			result = outcomeExpired
			j.log.Infow("subscription auto-expired", "subscriptionId", sub.ID, "nextBillingDate", sub.NextBillingDate)
			return true, nil
		}

		if !sub.IsInReminderWindow(now) {
			return false, nil
		}

		tier, ok := models.ClassifyReminder(now, sub.NextBillingDate)
		if !ok {
			j.log.Warnw("subscription overdue, no reminder sent", "subscriptionId", sub.ID, "nextBillingDate", sub.NextBillingDate)
			return false, nil
		}

		notice := models.NewReminderNotice(sub, tier, models.DaysUntil(now, sub.NextBillingDate))
		if sendErr := j.notifier.Send(ctx, notice); sendErr != nil {
			result = outcomeDispatchFailed
			j.log.Errorw("reminder dispatch failed",
				"subscriptionId", sub.ID,
				"tier", tier,
				"error", apperror.Dispatch(sendErr, "send %s for subscription %s", tier, sub.ID),
			)
			if !j.opts.MarkOnFailure {
				return false, nil
			}
		} else {
			result = outcomeDispatched
			j.log.Infow("reminder sent", "subscriptionId", sub.ID, "tier", tier, "recipient", notice.RecipientEmail)
		}

		stamp := now
		sub.LastReminderSent = &stamp
		return true, nil
	})

	if errors.Is(err, apperror.ErrNotFound) {
		// deleted after the scan
		counters.skipped.Add(1)
		return
	}

	switch result {
	case outcomeExpired:
		if err == nil {
			counters.expired.Add(1)
		}
	case outcomeDispatched:
		counters.dispatched.Add(1)
	case outcomeDispatchFailed:
		counters.dispatchFailed.Add(1)
	default:
		if err == nil {
			counters.skipped.Add(1)
		}
	}

	if err != nil {
		counters.persistFailed.Add(1)
		j.log.Errorw("could not save subscription after reminder check", "subscriptionId", id, "error", err)
	}
}
