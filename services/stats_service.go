package services

import (
	"time"

	"tournament-registration-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StatsService backs the admin dashboard overview cards.
type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

// GetDashboardStats aggregates the counts shown on the admin dashboard.
// "Active" means not completed: start_time still inside or ahead of the
// ±1h status window.
func (s *StatsService) GetDashboardStats(c *fiber.Ctx) error {
	activeCutoff := time.Now().Add(-time.Hour)

	var totalUsers int64
	if err := s.DB.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to count users"})
	}

	var totalTournaments int64
	if err := s.DB.Model(&models.Tournament{}).Count(&totalTournaments).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to count tournaments"})
	}

	var activeParticipants int64
	err := s.DB.Model(&models.TournamentParticipant{}).
		Joins("JOIN tournaments ON tournaments.id = tournament_participants.tournament_id").
		Where("tournaments.start_time > ?", activeCutoff).
		Count(&activeParticipants).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to count participants"})
	}

	var totalPrizePool float64
	err = s.DB.Model(&models.Tournament{}).
		Where("start_time > ?", activeCutoff).
		Select("COALESCE(SUM(prize_pool), 0)").
		Scan(&totalPrizePool).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to sum prize pools"})
	}

	var pendingPayments int64
	err = s.DB.Model(&models.PaymentRequest{}).
		Where("status = ?", models.RequestPending).
		Count(&pendingPayments).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to count payments"})
	}

	return c.JSON(fiber.Map{
		"total_users":         totalUsers,
		"total_tournaments":   totalTournaments,
		"active_participants": activeParticipants,
		"total_prize_pool":    totalPrizePool,
		"pending_payments":    pendingPayments,
	})
}
