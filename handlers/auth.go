package handlers

import (
	"tournament-registration-system/middleware"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService, db *gorm.DB) {
	app.Post("/auth/signup", authService.SignUp)
	app.Post("/auth/signin", authService.SignIn)
	app.Get("/auth/session", authService.GetSession)

	app.Post("/auth/signout", middleware.Session(db), authService.SignOut)
}
