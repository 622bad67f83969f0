package handlers

import (
	"tournament-registration-system/middleware"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupTournamentRoutes(
	app *fiber.App,
	tournamentService *services.TournamentService,
	participantService *services.ParticipantService,
	chatService *services.ChatService,
	roomService *services.RoomService,
	db *gorm.DB,
) {
	auth := middleware.Session(db)
	sseAuth := middleware.SSEAuth(db)
	admin := middleware.AdminOnly()

	// 📡 Watch routes — SSE, token via query param. /tournaments/watch goes
	// first so it never falls into /tournaments/:id.
	app.Get("/tournaments/watch", sseAuth, tournamentService.WatchTournaments)
	app.Get("/tournaments/:id/requests/watch", sseAuth, admin, tournamentService.WatchRequests)
	app.Get("/tournaments/:id/participants/watch", sseAuth, participantService.WatchParticipants)
	app.Get("/tournaments/:id/teams/watch", sseAuth, participantService.WatchTeams)
	app.Get("/tournaments/:id/room/watch", sseAuth, roomService.WatchRoom)
	app.Get("/tournaments/:id/chat/watch", sseAuth, chatService.WatchMessages)

	// 🔓 Public routes — anyone can browse tournaments
	app.Get("/tournaments", tournamentService.GetAllTournaments)
	app.Get("/tournaments/:id", tournamentService.GetTournamentByID)
	app.Get("/tournaments/:id/participants", participantService.GetParticipants)
	app.Get("/tournaments/:id/teams", participantService.GetTeams)

	// 🔐 Authenticated routes
	app.Post("/tournaments", auth, admin, tournamentService.CreateTournament)
	app.Delete("/tournaments/:id", auth, admin, tournamentService.DeleteTournament)

	app.Post("/tournaments/:id/join", auth, tournamentService.JoinTournament)
	app.Get("/tournaments/:id/requests", auth, admin, tournamentService.GetTournamentRequests)
	app.Post("/tournaments/:id/requests/:request_id/approve", auth, admin, tournamentService.ApproveRequest)
	app.Post("/tournaments/:id/requests/:request_id/reject", auth, admin, tournamentService.RejectRequest)

	app.Get("/tournaments/:id/room", auth, roomService.GetRoom)
	app.Put("/tournaments/:id/room", auth, admin, roomService.UpsertRoom)

	app.Get("/tournaments/:id/chat", auth, chatService.GetMessages)
	app.Post("/tournaments/:id/chat", auth, chatService.SendMessage)
}
