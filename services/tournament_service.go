package services

import (
	"errors"
	"fmt"
	"time"

	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type TournamentService struct {
	DB   *gorm.DB
	Feed *Changefeed
}

func NewTournamentService(db *gorm.DB, feed *Changefeed) *TournamentService {
	return &TournamentService{DB: db, Feed: feed}
}

type createTournamentRequest struct {
	Title           string  `json:"title" validate:"required"`
	Description     string  `json:"description"`
	StartTime       string  `json:"start_time" validate:"required"`
	EntryFee        float64 `json:"entry_fee" validate:"gte=0"`
	MaxParticipants int     `json:"max_participants" validate:"gte=2"`
	PrizePool       float64 `json:"prize_pool" validate:"gte=0"`
	Rules           string  `json:"rules"`
}

// slugFor builds a stable, unique slug from the title and the id prefix.
func slugFor(title, id string) string {
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return slug.Make(title) + "-" + suffix
}

func (s *TournamentService) CreateTournament(c *fiber.Ctx) error {
	var req createTournamentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start_time (use RFC3339)"})
	}

	userID, _ := c.Locals("user_id").(string)
	id := uuid.NewString()
	tournament := models.Tournament{
		ID:              id,
		Slug:            slugFor(req.Title, id),
		Title:           req.Title,
		Description:     req.Description,
		StartTime:       startTime,
		EntryFee:        req.EntryFee,
		MaxParticipants: req.MaxParticipants,
		PrizePool:       req.PrizePool,
		Rules:           req.Rules,
		Status:          models.StatusUpcoming, // stale the moment it is written; reads re-derive
		CreatedBy:       userID,
	}

	if err := s.DB.Create(&tournament).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB insert failed"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableTournaments, Action: ActionInsert, TournamentID: tournament.ID, RowID: tournament.ID})

	tournament.ApplyDerivedStatus(time.Now())
	return c.Status(201).JSON(tournament)
}

// fetchTournaments runs the list query and applies the derived status.
// The optional filter matches against the DERIVED status, not the stale
// stored column.
func (s *TournamentService) fetchTournaments(statusFilter string) ([]models.Tournament, error) {
	var tournaments []models.Tournament
	if err := s.DB.Order("start_time ASC").Find(&tournaments).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	filtered := make([]models.Tournament, 0, len(tournaments))
	for i := range tournaments {
		tournaments[i].ApplyDerivedStatus(now)
		if statusFilter != "" && tournaments[i].Status != statusFilter {
			continue
		}
		filtered = append(filtered, tournaments[i])
	}
	return filtered, nil
}

func (s *TournamentService) GetAllTournaments(c *fiber.Ctx) error {
	tournaments, err := s.fetchTournaments(c.Query("status"))
	if err != nil {
		log.Printf("ERROR fetching tournaments: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tournaments"})
	}
	return c.JSON(tournaments)
}

func (s *TournamentService) GetTournamentByID(c *fiber.Ctx) error {
	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", c.Params("id")).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}
	tournament.ApplyDerivedStatus(time.Now())
	return c.JSON(tournament)
}

// DeleteTournament removes the tournament and cascades to its requests,
// participants, chat messages and room in a single transaction.
func (s *TournamentService) DeleteTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tournament_id = ?", tournamentID).Delete(&models.TournamentRoom{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Tournament{}, "id = ?", tournamentID).Error
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to delete tournament"})
	}

	for _, table := range []string{TableRequests, TableParticipants, TableChatMessages, TableRooms, TableTournaments} {
		s.Feed.Publish(ChangeEvent{Table: table, Action: ActionDelete, TournamentID: tournamentID})
	}

	log.Printf("✅ Deleted tournament %s (%s)", tournament.Title, tournamentID)
	return c.JSON(fiber.Map{"ok": true})
}

// joinConflictMessage picks the user-facing message for a duplicate join
// attempt from the existing request's status.
func joinConflictMessage(status string) string {
	switch status {
	case models.RequestPending:
		return "Your request is still pending admin approval"
	case models.RequestApproved:
		return "You are already registered for this tournament"
	default:
		return "Your previous request was rejected. Please contact admin for more information"
	}
}

func (s *TournamentService) JoinTournament(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	userID, _ := c.Locals("user_id").(string)

	var tournament models.Tournament
	if err := s.DB.First(&tournament, "id = ?", tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "tournament not found"})
	}

	var existing models.TournamentRequest
	err := s.DB.First(&existing, "tournament_id = ? AND user_id = ?", tournamentID, userID).Error
	if err == nil {
		return c.Status(409).JSON(fiber.Map{"error": joinConflictMessage(existing.Status)})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check existing request"})
	}

	request := models.TournamentRequest{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		Status:       models.RequestPending,
	}
	if err := s.DB.Create(&request).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to submit join request"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableRequests, Action: ActionInsert, TournamentID: tournamentID, RowID: request.ID})

	return c.Status(201).JSON(fiber.Map{
		"request": request,
		"message": "Join request submitted! Waiting for admin approval. You will be notified once approved.",
	})
}

// fetchPendingRequests backs both the admin list endpoint and its watch stream.
func (s *TournamentService) fetchPendingRequests(tournamentID string) ([]models.TournamentRequest, error) {
	var requests []models.TournamentRequest
	err := s.DB.Preload("User").
		Where("tournament_id = ? AND status = ?", tournamentID, models.RequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *TournamentService) GetTournamentRequests(c *fiber.Ctx) error {
	requests, err := s.fetchPendingRequests(c.Params("id"))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch requests"})
	}
	return c.JSON(requests)
}

// ApproveRequest flips the request to approved AND inserts the participant
// row (payment_status pending) in one transaction, so a partial failure
// cannot leave an approved request without a participant.
func (s *TournamentService) ApproveRequest(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	requestID := c.Params("request_id")

	var request models.TournamentRequest
	if err := s.DB.First(&request, "id = ? AND tournament_id = ?", requestID, tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "request not found"})
	}
	if request.Status != models.RequestPending {
		return c.Status(409).JSON(fiber.Map{"error": fmt.Sprintf("request already %s", request.Status)})
	}

	participant := models.TournamentParticipant{
		ID:            uuid.NewString(),
		TournamentID:  request.TournamentID,
		UserID:        request.UserID,
		PaymentStatus: models.PaymentPending,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TournamentRequest{}).
			Where("id = ?", request.ID).
			Update("status", models.RequestApproved).Error; err != nil {
			return err
		}
		return tx.Create(&participant).Error
	})
	if err != nil {
		log.Printf("❌ Failed to approve request %s: %v", request.ID, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to approve request"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableRequests, Action: ActionUpdate, TournamentID: tournamentID, RowID: request.ID})
	s.Feed.Publish(ChangeEvent{Table: TableParticipants, Action: ActionInsert, TournamentID: tournamentID, RowID: participant.ID})

	return c.JSON(fiber.Map{"status": models.RequestApproved, "participant_id": participant.ID})
}

func (s *TournamentService) RejectRequest(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	requestID := c.Params("request_id")

	var request models.TournamentRequest
	if err := s.DB.First(&request, "id = ? AND tournament_id = ?", requestID, tournamentID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "request not found"})
	}
	if request.Status != models.RequestPending {
		return c.Status(409).JSON(fiber.Map{"error": fmt.Sprintf("request already %s", request.Status)})
	}

	if err := s.DB.Model(&models.TournamentRequest{}).
		Where("id = ?", request.ID).
		Update("status", models.RequestRejected).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to reject request"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableRequests, Action: ActionUpdate, TournamentID: tournamentID, RowID: request.ID})

	return c.JSON(fiber.Map{"status": models.RequestRejected})
}

// WatchTournaments streams the full derived-status tournament list,
// re-fetched on every tournaments change event.
func (s *TournamentService) WatchTournaments(c *fiber.Ctx) error {
	return streamResync(c, s.Feed, TableTournaments, "", "tournaments", func() (interface{}, error) {
		return s.fetchTournaments("")
	})
}

// WatchRequests streams the pending request list for one tournament.
func (s *TournamentService) WatchRequests(c *fiber.Ctx) error {
	tournamentID := c.Params("id")
	return streamResync(c, s.Feed, TableRequests, tournamentID, "requests", func() (interface{}, error) {
		return s.fetchPendingRequests(tournamentID)
	})
}
