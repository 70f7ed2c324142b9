package adminRoutes

import (
	reminderController "subminder/controllers/reminder"
	"subminder/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, reminders *reminderController.Controller) {
	adminGroup := app.Group("/admin", middleware.AdminKeyMiddleware)

	adminGroup.Post("/reminders/run", reminders.RunNow)
}
