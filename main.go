package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tournament-registration-system/handlers"
	"tournament-registration-system/models"
	"tournament-registration-system/services"
	"tournament-registration-system/utils"
	"tournament-registration-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB, QR images only
	})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.AuthAccount{},
		&models.User{},
		&models.Session{},
		&models.Tournament{},
		&models.TournamentRequest{},
		&models.TournamentParticipant{},
		&models.TournamentRoom{},
		&models.PaymentRequest{},
		&models.PaymentSettings{},
		&models.ChatMessage{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	feed := services.NewChangefeed()

	authService := services.NewAuthService(db, feed)
	tournamentService := services.NewTournamentService(db, feed)
	participantService := services.NewParticipantService(db, feed)
	paymentService := services.NewPaymentService(db, feed)
	chatService := services.NewChatService(db, feed)
	roomService := services.NewRoomService(db, feed)
	userService := services.NewUserService(db, feed)
	realtimeService := services.NewRealtimeService(feed)
	statsService := services.NewStatsService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reconciler := workers.NewReconciliationWorker(db, feed, 1*time.Minute)
	reconciler.Start(ctx)

	tournamentService.StartStatusScheduler()

	handlers.SetupAuthRoutes(app, authService, db)
	handlers.SetupTournamentRoutes(app, tournamentService, participantService, chatService, roomService, db)
	handlers.SetupPaymentRoutes(app, paymentService, db)
	handlers.SetupProfileRoutes(app, userService, paymentService, db)
	handlers.SetupRealtimeRoutes(app, realtimeService, db)
	handlers.SetupAdminRoutes(app, statsService, db)

	app.Static("/uploads", "./uploads")

	port := os.Getenv("PORT")
	if port == "" {
		port = "5200"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Reconciliation worker running (every 1m)")
	log.Println("✅ Status scheduler running (every 1m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
