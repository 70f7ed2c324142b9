package userRoutes

import (
	subscriptionController "subminder/controllers/subscription"
	"subminder/middleware"
	subscriptionValidator "subminder/validators/subscription"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, subs *subscriptionController.Controller) {
	userGroup := app.Group("/user/subs", middleware.JWTMiddleware)

	userGroup.Get("/", subscriptionValidator.ListSubscriptions(), subs.List)
	userGroup.Post("/", subscriptionValidator.CreateSubscription(), subs.Create)
	userGroup.Get("/:id", subs.Get)
	userGroup.Patch("/:id", subscriptionValidator.UpdateSubscription(), subs.Update)
	userGroup.Patch("/:id/done", subscriptionValidator.MarkPaid(), subs.MarkPaid)
	userGroup.Patch("/:id/expire", subs.MarkExpired)
	userGroup.Delete("/:id", subs.Delete)
}
