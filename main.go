package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"subminder/config"
	authController "subminder/controllers/auth"
	reminderController "subminder/controllers/reminder"
	subscriptionController "subminder/controllers/subscription"
	"subminder/database"
	"subminder/logger"
	"subminder/middleware"
	"subminder/repository"
	adminRoutes "subminder/routers/adminRoutes"
	authRoutes "subminder/routers/authRoutes"
	userRoutes "subminder/routers/userRoutes"
	"subminder/services"
	"subminder/utils"
)

func main() {
	cfg := config.LoadConfig()

	log, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.L = log
	defer log.Sync()

	db, err := database.ConnectDb(cfg)
	if err != nil {
		log.Fatalw("failed to connect to the database", "driver", cfg.DBDriver, "error", err)
	}

	users := repository.NewUserRepository(db)
	subs := repository.NewSubscriptionRepository(db)

	notifier, err := utils.NewNotifier(cfg, log)
	if err != nil {
		log.Fatalw("failed to set up the mail notifier", "error", err)
	}
	runLock, err := utils.NewRunLock(cfg)
	if err != nil {
		log.Fatalw("failed to set up the reminder run lock", "error", err)
	}

	job := utils.NewReminderJob(subs, notifier, runLock, log, utils.ReminderJobOptions{
		Workers:             cfg.ReminderWorkers,
		MarkOnFailure:       cfg.ReminderMarkOnFailure,
		AutoExpireAfterDays: cfg.AutoExpireAfterDays,
	})
	scheduler := utils.NewReminderScheduler(job, cfg.ReminderCron, log)
	if err := scheduler.Start(); err != nil {
		log.Fatalw("failed to start the reminder scheduler", "error", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return middleware.JsonResponse(c, fe.Code, false, fe.Message, nil)
			}
			return middleware.ErrorResponse(c, err)
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization,X-Admin-Key",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app, authController.New(users))
	userRoutes.SetupUserRoutes(app, subscriptionController.New(services.NewSubscriptionService(subs)))
	adminRoutes.SetupAdminRoutes(app, reminderController.New(job))

	go func() {
		log.Infow("server is running", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorw("server shutdown", "error", err)
	}

	// wait for an in-flight reminder run
	select {
	case <-scheduler.Stop().Done():
	case <-time.After(time.Minute):
		log.Warn("reminder run still going after one minute, exiting anyway")
	}
}
