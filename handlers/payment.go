package handlers

import (
	"tournament-registration-system/middleware"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupPaymentRoutes(app *fiber.App, paymentService *services.PaymentService, db *gorm.DB) {
	auth := middleware.Session(db)
	sseAuth := middleware.SSEAuth(db)
	admin := middleware.AdminOnly()

	// 📡 Admin watch stream for incoming payment proofs
	app.Get("/payments/requests/watch", sseAuth, admin, paymentService.WatchPaymentRequests)

	// Payment settings — read for everyone signed in, write for admins
	app.Get("/payments/settings", auth, paymentService.GetSettings)
	app.Put("/payments/settings", auth, admin, paymentService.UpdateSettings)
	app.Post("/payments/settings/qr", auth, admin, paymentService.UploadQR)

	// Payment proof submission and verification
	app.Post("/tournaments/:id/payment", auth, paymentService.SubmitPaymentRequest)
	app.Get("/payments/requests", auth, admin, paymentService.GetPendingPaymentRequests)
	app.Post("/payments/requests/:request_id/approve", auth, admin, paymentService.ApprovePaymentRequest)
	app.Post("/payments/requests/:request_id/reject", auth, admin, paymentService.RejectPaymentRequest)
}
