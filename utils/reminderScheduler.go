package utils

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"

	"subminder/apperror"
	"subminder/logger"
)

// cronLogger routes robfig/cron's own messages into zap.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw("[REMINDER-SCHEDULER] "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw("[REMINDER-SCHEDULER] "+msg, append(keysAndValues, "error", err)...)
}

// ReminderScheduler fires the reminder job on a cron spec. A tick that lands while the
// previous run is still going is skipped.
type ReminderScheduler struct {
	cron *cron.Cron
	job  *ReminderJob
	spec string
	log  *logger.Logger
}

func NewReminderScheduler(job *ReminderJob, spec string, log *logger.Logger) *ReminderScheduler {
	cl := cronLogger{log: log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	return &ReminderScheduler{cron: c, job: job, spec: spec, log: log}
}

// Start registers the daily run and starts the cron loop.
func (s *ReminderScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return errors.Wrapf(err, "schedule reminder job %q", s.spec)
	}
	s.cron.Start()
	s.log.Infow("[REMINDER-SCHEDULER] reminder scheduler started", "schedule", s.spec)
	return nil
}

// Stop halts the schedule; the returned context is done once a running tick finishes.
func (s *ReminderScheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *ReminderScheduler) tick() {
	report, err := s.job.Run(context.Background(), time.Now())
	switch {
	case errors.Is(err, apperror.ErrRunInProgress):
		s.log.Warnw("[REMINDER-SCHEDULER] previous reminder run still in progress, skipping")
	case err != nil:
		s.log.Errorw("[REMINDER-SCHEDULER] reminder run failed", "error", err)
	default:
		s.log.Infow("[REMINDER-SCHEDULER] daily reminder check done", "dispatched", report.Dispatched, "failed", report.DispatchFailed)
	}
}
