package subscriptionController

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"subminder/middleware"
	"subminder/models"
	"subminder/services"
)

type Controller struct {
	service *services.SubscriptionService
}

func New(service *services.SubscriptionService) *Controller {
	return &Controller{service: service}
}

func (h *Controller) Create(c *fiber.Ctx) error {
	input := c.Locals("validatedSubscription").(models.SubscriptionInput)

	sub, err := h.service.Create(c.UserContext(), middleware.UserID(c), input)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Subscription added successfully.", sub)
}

func (h *Controller) List(c *fiber.Ctx) error {
	status := c.Locals("statusFilter").(models.SubscriptionStatus)

	subs, err := h.service.List(c.UserContext(), middleware.UserID(c), status)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscriptions fetched successfully.", subs)
}

func (h *Controller) Get(c *fiber.Ctx) error {
	sub, err := h.service.Get(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription fetched successfully.", sub)
}

func (h *Controller) Update(c *fiber.Ctx) error {
	patch := c.Locals("validatedPatch").(models.SubscriptionPatch)

	sub, err := h.service.Edit(c.UserContext(), middleware.UserID(c), c.Params("id"), patch)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription updated successfully.", sub)
}

func (h *Controller) MarkPaid(c *fiber.Ctx) error {
	paidDate, _ := c.Locals("paidDate").(*time.Time)

	sub, err := h.service.MarkPaid(c.UserContext(), middleware.UserID(c), c.Params("id"), paidDate)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Payment recorded, next billing date updated.", sub)
}

func (h *Controller) MarkExpired(c *fiber.Ctx) error {
	sub, err := h.service.MarkExpired(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription marked as expired.", sub)
}

func (h *Controller) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Subscription deleted successfully.", nil)
}
