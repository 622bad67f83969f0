package handlers

import (
	"tournament-registration-system/middleware"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAdminRoutes(app *fiber.App, statsService *services.StatsService, db *gorm.DB) {
	app.Get("/admin/stats", middleware.Session(db), middleware.AdminOnly(), statsService.GetDashboardStats)
}
