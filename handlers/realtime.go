package handlers

import (
	"tournament-registration-system/middleware"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRealtimeRoutes(app *fiber.App, realtimeService *services.RealtimeService, db *gorm.DB) {
	app.Get("/realtime/:table", middleware.SSEAuth(db), realtimeService.StreamChanges)
}
