package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SSEAuth authenticates stream endpoints via a `token` query parameter.
// EventSource cannot set headers, so the Bearer scheme is no use there.
func SSEAuth(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))
		return resolveSession(c, db, token)
	}
}
