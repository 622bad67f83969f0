package services

import (
	"errors"
	"strings"

	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatService struct {
	DB   *gorm.DB
	Feed *Changefeed
}

func NewChatService(db *gorm.DB, feed *Changefeed) *ChatService {
	return &ChatService{DB: db, Feed: feed}
}

func (s *ChatService) fetchMessages(tournamentID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.DB.Preload("User").
		Where("tournament_id = ?", tournamentID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

func (s *ChatService) GetMessages(c *fiber.Ctx) error {
	messages, err := s.fetchMessages(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch messages"})
	}
	return c.JSON(messages)
}

type chatRequest struct {
	Message string `json:"message"`
}

// SendMessage posts to a tournament's chat. Only approved participants
// may write; everyone with a session may read.
func (s *ChatService) SendMessage(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	tournamentID := c.Params("id")

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return c.Status(400).JSON(fiber.Map{"error": "message cannot be empty"})
	}

	var participant models.TournamentParticipant
	err := s.DB.First(&participant, "tournament_id = ? AND user_id = ?", tournamentID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(403).JSON(fiber.Map{"error": "You must be a participant to chat in this tournament"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to verify participation"})
	}

	message := models.ChatMessage{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		Message:      req.Message,
	}
	if err := s.DB.Create(&message).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to send message"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableChatMessages, Action: ActionInsert, TournamentID: tournamentID, RowID: message.ID})
	return c.Status(201).JSON(message)
}

func (s *ChatService) WatchMessages(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	return streamResync(c, s.Feed, TableChatMessages, tournamentID, "chat", func() (interface{}, error) {
		return s.fetchMessages(tournamentID)
	})
}
