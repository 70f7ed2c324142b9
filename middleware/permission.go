package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"subminder/config"
)

// AdminKeyMiddleware guards operator endpoints with the static X-Admin-Key header. With no
// ADMIN_API_KEY configured every request is refused.
func AdminKeyMiddleware(c *fiber.Ctx) error {
	expected := config.AppConfig.AdminAPIKey
	if expected == "" {
		return JsonResponse(c, fiber.StatusForbidden, false, "Admin endpoints are disabled!", nil)
	}

	given := c.Get("X-Admin-Key")
	if subtle.ConstantTimeCompare([]byte(given), []byte(expected)) != 1 {
		return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
	}
	return c.Next()
}
