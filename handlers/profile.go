package handlers

import (
	"tournament-registration-system/middleware"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProfileRoutes(app *fiber.App, userService *services.UserService, paymentService *services.PaymentService, db *gorm.DB) {
	auth := middleware.Session(db)
	admin := middleware.AdminOnly()

	app.Get("/profile", auth, userService.GetProfile)
	app.Put("/profile", auth, userService.UpdateProfile)
	app.Get("/profile/tournaments", auth, userService.GetTournamentHistory)
	app.Get("/profile/payments", auth, paymentService.GetMyPayments)

	app.Get("/users/search", auth, admin, userService.SearchUsers)
}
