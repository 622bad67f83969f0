package services

import (
	"errors"
	"time"

	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoomService struct {
	DB   *gorm.DB
	Feed *Changefeed
}

func NewRoomService(db *gorm.DB, feed *Changefeed) *RoomService {
	return &RoomService{DB: db, Feed: feed}
}

func (s *RoomService) fetchRoom(tournamentID string) (*models.TournamentRoom, error) {
	var room models.TournamentRoom
	err := s.DB.First(&room, "tournament_id = ?", tournamentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomService) GetRoom(c *fiber.Ctx) error {
	room, err := s.fetchRoom(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch room"})
	}
	if room == nil {
		return c.Status(404).JSON(fiber.Map{"error": "room details not available"})
	}
	return c.JSON(room)
}

type roomRequest struct {
	RoomID       string `json:"room_id" validate:"required"`
	RoomPassword string `json:"room_password" validate:"required"`
}

// UpsertRoom sets or replaces a tournament's room credentials. One room
// row per tournament.
func (s *RoomService) UpsertRoom(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var req roomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	var tournament models.Tournament
	err := s.DB.First(&tournament, "id = ?", tournamentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournament"})
	}

	room := models.TournamentRoom{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		RoomID:       req.RoomID,
		RoomPassword: req.RoomPassword,
		UpdatedAt:    time.Now(),
	}
	err = s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tournament_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"room_id", "room_password", "updated_at"}),
	}).Create(&room).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to save room"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableRooms, Action: ActionUpdate, TournamentID: tournamentID, RowID: room.ID})
	return c.JSON(room)
}

func (s *RoomService) WatchRoom(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	return streamResync(c, s.Feed, TableRooms, tournamentID, "room", func() (interface{}, error) {
		room, err := s.fetchRoom(tournamentID)
		if err != nil {
			return nil, err
		}
		// nil snapshot tells the client the room is not published yet
		return room, nil
	})
}
