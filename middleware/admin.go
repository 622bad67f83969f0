package middleware

import (
	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
)

// AdminOnly gates a route to users with the admin role. Must run after
// Session or SSEAuth.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals("user_role").(string); role != models.RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}
		return c.Next()
	}
}
