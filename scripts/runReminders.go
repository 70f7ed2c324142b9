package main

import (
	"context"
	"flag"
	"time"

	"subminder/config"
	"subminder/database"
	"subminder/logger"
	"subminder/repository"
	"subminder/utils"
)

// One-shot reminder pass, for cron hosts that do not keep the server running or to replay a
// missed day: go run ./scripts -date 2024-01-29
func main() {
	date := flag.String("date", "", "run as if today were this date (YYYY-MM-DD), defaults to now")
	flag.Parse()

	cfg := config.LoadConfig()
	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.L = log
	defer log.Sync()

	today := time.Now()
	if *date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			log.Fatalw("invalid -date", "date", *date, "error", err)
		}
		// keep the current clock time so the marker still reads as "sent at"
		today = parsed.Add(time.Duration(today.Hour())*time.Hour + time.Duration(today.Minute())*time.Minute)
	}

	db, err := database.ConnectDb(cfg)
	if err != nil {
		log.Fatalw("failed to connect to the database", "error", err)
	}

	notifier, err := utils.NewNotifier(cfg, log)
	if err != nil {
		log.Fatalw("failed to set up the mail notifier", "error", err)
	}
	runLock, err := utils.NewRunLock(cfg)
	if err != nil {
		log.Fatalw("failed to set up the reminder run lock", "error", err)
	}

	job := utils.NewReminderJob(repository.NewSubscriptionRepository(db), notifier, runLock, log, utils.ReminderJobOptions{
		Workers:             cfg.ReminderWorkers,
		MarkOnFailure:       cfg.ReminderMarkOnFailure,
		AutoExpireAfterDays: cfg.AutoExpireAfterDays,
	})

	report, err := job.Run(context.Background(), today)
	if err != nil {
		log.Fatalw("reminder run failed", "error", err)
	}
	log.Infow("reminder run complete",
		"date", today.Format("2006-01-02"),
		"scanned", report.Scanned,
		"dispatched", report.Dispatched,
		"dispatchFailed", report.DispatchFailed,
		"skipped", report.Skipped,
		"expired", report.Expired,
		"persistFailed", report.PersistFailed,
	)
}
