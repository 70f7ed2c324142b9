package middleware

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"

	"subminder/apperror"
	"subminder/logger"
)

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse writes err with the status its kind maps to. Internal failures are logged and
// answered with a generic message.
func ErrorResponse(c *fiber.Ctx, err error) error {
	if fields, ok := apperror.ValidationFields(err); ok {
		return ValidationErrorResponse(c, fields)
	}

	status := apperror.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.L.Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return JsonResponse(c, status, false, "Something went wrong, please try again later!", nil)
	}
	if errors.Is(err, apperror.ErrRunInProgress) {
		return JsonResponse(c, status, false, "A reminder run is already in progress!", nil)
	}
	return JsonResponse(c, status, false, err.Error(), nil)
}
