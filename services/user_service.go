package services

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserService struct {
	DB   *gorm.DB
	Feed *Changefeed
}

func NewUserService(db *gorm.DB, feed *Changefeed) *UserService {
	return &UserService{DB: db, Feed: feed}
}

func (s *UserService) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	err := s.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "profile not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch profile"})
	}
	return c.JSON(user)
}

type profileRequest struct {
	GameID   *string `json:"game_id"`
	GameName *string `json:"game_name"`
}

// UpdateProfile sets the caller's in-game identity fields.
func (s *UserService) UpdateProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.GameID != nil {
		updates["game_id"] = strings.TrimSpace(*req.GameID)
	}
	if req.GameName != nil {
		updates["game_name"] = strings.TrimSpace(*req.GameName)
	}
	if len(updates) == 1 {
		return c.Status(400).JSON(fiber.Map{"error": "nothing to update"})
	}

	if err := s.DB.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update profile"})
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch profile"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableUsers, Action: ActionUpdate, RowID: userID})
	return c.JSON(user)
}

// GetTournamentHistory lists every tournament the caller was approved
// into, with the status re-derived at read time.
func (s *UserService) GetTournamentHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var participants []models.TournamentParticipant
	err := s.DB.Preload("Tournament").
		Where("user_id = ?", userID).
		Order("joined_at DESC").
		Find(&participants).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournament history"})
	}

	now := time.Now()
	for i := range participants {
		if participants[i].Tournament != nil {
			participants[i].Tournament.ApplyDerivedStatus(now)
		}
	}
	return c.JSON(participants)
}

// SearchUsers is the admin lookup behind the dashboard user picker.
func (s *UserService) SearchUsers(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return c.Status(400).JSON(fiber.Map{"error": "q query parameter is required"})
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	pattern := "%" + strings.ToLower(q) + "%"
	var users []models.User
	err := s.DB.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to search users"})
	}
	return c.JSON(users)
}
