package services

import (
	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ParticipantService struct {
	DB   *gorm.DB
	Feed *Changefeed
}

func NewParticipantService(db *gorm.DB, feed *Changefeed) *ParticipantService {
	return &ParticipantService{DB: db, Feed: feed}
}

// fetchParticipants loads a tournament's participants with their profiles.
// paymentStatus narrows the list ("" = everyone).
func (s *ParticipantService) fetchParticipants(tournamentID, paymentStatus string) ([]models.TournamentParticipant, error) {
	var participants []models.TournamentParticipant
	db := s.DB.Preload("User").Where("tournament_id = ?", tournamentID)
	if paymentStatus != "" {
		db = db.Where("payment_status = ?", paymentStatus)
	}
	err := db.Order("joined_at ASC").Find(&participants).Error
	return participants, err
}

// GetParticipants lists paid participants by default; admins can pass
// ?payment_status=pending or ?payment_status=all.
func (s *ParticipantService) GetParticipants(c *fiber.Ctx) error {
	paymentStatus := c.Query("payment_status", models.PaymentCompleted)
	if paymentStatus == "all" {
		paymentStatus = ""
	}
	participants, err := s.fetchParticipants(c.Params("id"), paymentStatus)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch participants"})
	}
	return c.JSON(participants)
}

// GetTeams groups paid participants by team_name, the unassigned ones
// bucketed together.
func (s *ParticipantService) GetTeams(c *fiber.Ctx) error {
	participants, err := s.fetchParticipants(c.Params("id"), models.PaymentCompleted)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch teams"})
	}
	return c.JSON(models.GroupTeams(participants))
}

func (s *ParticipantService) WatchParticipants(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	return streamResync(c, s.Feed, TableParticipants, tournamentID, "participants", func() (interface{}, error) {
		return s.fetchParticipants(tournamentID, models.PaymentCompleted)
	})
}

func (s *ParticipantService) WatchTeams(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	return streamResync(c, s.Feed, TableParticipants, tournamentID, "teams", func() (interface{}, error) {
		participants, err := s.fetchParticipants(tournamentID, models.PaymentCompleted)
		if err != nil {
			return nil, err
		}
		return models.GroupTeams(participants), nil
	})
}
