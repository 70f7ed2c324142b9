package subscriptionValidator

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"subminder/middleware"
	"subminder/models"
	"subminder/validators"
)

type PriceRequest struct {
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
	Currency string           `json:"currency" validate:"omitempty,oneof=USD EUR INR GBP JPY"`
}

type CreateSubscriptionRequest struct {
	PlatformName       string        `json:"platformName" validate:"required,max=120"`
	Price              *PriceRequest `json:"price" validate:"required"`
	BillingCycle       string        `json:"billingCycle"`
	StartDate          string        `json:"startDate" validate:"required"`
	Status             string        `json:"status" validate:"omitempty,oneof=Active Cancelled Paused Expired"`
	Category           string        `json:"category" validate:"max=60"`
	ReminderDaysBefore *int          `json:"reminderDaysBefore" validate:"omitempty,min=0,max=30"`
}

type PricePatchRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Currency *string          `json:"currency" validate:"omitempty,oneof=USD EUR INR GBP JPY"`
}

type UpdateSubscriptionRequest struct {
	PlatformName       *string            `json:"platformName" validate:"omitempty,max=120"`
	Price              *PricePatchRequest `json:"price"`
	BillingCycle       *string            `json:"billingCycle"`
	StartDate          *string            `json:"startDate"`
	Status             *string            `json:"status" validate:"omitempty,oneof=Active Cancelled Paused Expired"`
	Category           *string            `json:"category" validate:"omitempty,max=60"`
	ReminderDaysBefore *int               `json:"reminderDaysBefore" validate:"omitempty,min=0,max=30"`
}

type MarkPaidRequest struct {
	PaidDate string `json:"paidDate"`
}

// ParseDate accepts a plain calendar date, read in the server's zone, or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

const dateMessage = "Date must be YYYY-MM-DD or an RFC 3339 timestamp!"

// CreateSubscription validator middleware
func CreateSubscription() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateSubscriptionRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := validators.Struct(reqData)

		input := models.SubscriptionInput{
			PlatformName:       reqData.PlatformName,
			Status:             models.SubscriptionStatus(reqData.Status),
			Category:           reqData.Category,
			ReminderDaysBefore: reqData.ReminderDaysBefore,
		}
		if reqData.Price != nil && reqData.Price.Amount != nil {
			input.Amount = *reqData.Price.Amount
			input.Currency = models.Currency(reqData.Price.Currency)
		}
		if reqData.BillingCycle != "" {
			cycle, ok := models.ParseBillingCycle(reqData.BillingCycle)
			if !ok {
				errors["billingCycle"] = "Billing cycle must be one of Weekly, Monthly, Quarterly, Yearly!"
			}
			input.BillingCycle = cycle
		}
		if reqData.StartDate != "" {
			start, ok := ParseDate(reqData.StartDate)
			if !ok {
				errors["startDate"] = dateMessage
			}
			input.StartDate = start
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedSubscription", input)
		return c.Next()
	}
}

// UpdateSubscription validator middleware
func UpdateSubscription() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(UpdateSubscriptionRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := validators.Struct(reqData)

		patch := models.SubscriptionPatch{
			PlatformName:       reqData.PlatformName,
			Category:           reqData.Category,
			ReminderDaysBefore: reqData.ReminderDaysBefore,
		}
		if reqData.Price != nil {
			patch.Price = &models.PricePatch{Amount: reqData.Price.Amount}
			if reqData.Price.Currency != nil {
				currency := models.Currency(*reqData.Price.Currency)
				patch.Price.Currency = &currency
			}
		}
		if reqData.Status != nil {
			status := models.SubscriptionStatus(*reqData.Status)
			patch.Status = &status
		}
		if reqData.BillingCycle != nil {
			cycle, ok := models.ParseBillingCycle(*reqData.BillingCycle)
			if !ok {
				errors["billingCycle"] = "Billing cycle must be one of Weekly, Monthly, Quarterly, Yearly!"
			}
			patch.BillingCycle = &cycle
		}
		if reqData.StartDate != nil {
			start, ok := ParseDate(*reqData.StartDate)
			if !ok {
				errors["startDate"] = dateMessage
			}
			patch.StartDate = &start
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedPatch", patch)
		return c.Next()
	}
}

// MarkPaid validator middleware. The body is optional.
func MarkPaid() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var paidDate *time.Time

		if len(c.Body()) > 0 {
			reqData := new(MarkPaidRequest)
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
			if reqData.PaidDate != "" {
				paid, ok := ParseDate(reqData.PaidDate)
				if !ok {
					return middleware.ValidationErrorResponse(c, map[string]string{"paidDate": dateMessage})
				}
				paidDate = &paid
			}
		}

		c.Locals("paidDate", paidDate)
		return c.Next()
	}
}

// ListSubscriptions validator middleware
func ListSubscriptions() fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := models.SubscriptionStatus(strings.TrimSpace(c.Query("status")))
		if status != "" && !status.IsValid() {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"status": "Status must be one of Active, Cancelled, Paused, Expired!",
			})
		}

		c.Locals("statusFilter", status)
		return c.Next()
	}
}
