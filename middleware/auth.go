package middleware

import (
	"errors"
	"time"

	"tournament-registration-system/models"
	"tournament-registration-system/utils"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// resolveSession loads the session behind a token and attaches the user's
// identity to the request context. Expired sessions are deleted eagerly.
func resolveSession(c *fiber.Ctx, db *gorm.DB, token string) error {
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	var session models.Session
	err := db.First(&session, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid session"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to verify session"})
	}

	if time.Now().After(session.ExpiresAt) {
		db.Delete(&session)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session expired"})
	}

	var user models.User
	err = db.First(&user, "id = ?", session.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("⚠️  session %s...%s points at missing user %s", token[:4], token[len(token)-4:], session.UserID)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid session"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to verify session"})
	}

	c.Locals("user_id", user.ID)
	c.Locals("username", user.Username)
	c.Locals("user_role", user.Role)
	c.Locals("session_token", session.Token)
	return c.Next()
}

// Session authenticates requests via "Authorization: Bearer <token>".
func Session(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return resolveSession(c, db, utils.BearerToken(c.Get("Authorization")))
	}
}
