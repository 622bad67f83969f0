package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tournament-registration-system/handlers"
	"tournament-registration-system/models"
	"tournament-registration-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tournaments_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":    "tournament-registration",
			"cleanup": "auto",
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
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
	))

	t.Setenv("ADMIN_EMAILS", "admin@test.local")

	feed := services.NewChangefeed()
	authService := services.NewAuthService(db, feed)
	tournamentService := services.NewTournamentService(db, feed)
	participantService := services.NewParticipantService(db, feed)
	paymentService := services.NewPaymentService(db, feed)
	chatService := services.NewChatService(db, feed)
	roomService := services.NewRoomService(db, feed)
	userService := services.NewUserService(db, feed)
	statsService := services.NewStatsService(db)

	app := fiber.New()
	handlers.SetupAuthRoutes(app, authService, db)
	handlers.SetupTournamentRoutes(app, tournamentService, participantService, chatService, roomService, db)
	handlers.SetupPaymentRoutes(app, paymentService, db)
	handlers.SetupProfileRoutes(app, userService, paymentService, db)
	handlers.SetupAdminRoutes(app, statsService, db)

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func signUp(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/auth/signup", "", fiber.Map{
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status, "signup failed: %v", body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createTournament(t *testing.T, app *fiber.App, adminToken string) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/tournaments", adminToken, fiber.Map{
		"title":            "Friday Night Showdown",
		"description":      "Best of three",
		"start_time":       time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"entry_fee":        100,
		"max_participants": 16,
		"prize_pool":       1000,
	})
	require.Equal(t, http.StatusCreated, status, "create failed: %v", body)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func joinAndApprove(t *testing.T, app *fiber.App, db *gorm.DB, adminToken, userToken, tournamentID string) {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/join", userToken, nil)
	require.Equal(t, http.StatusCreated, status, "join failed: %v", body)

	var request models.TournamentRequest
	require.NoError(t, db.Last(&request, "tournament_id = ? AND status = ?", tournamentID, models.RequestPending).Error)

	status, body = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/tournaments/%s/requests/%s/approve", tournamentID, request.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, status, "approve failed: %v", body)
}

func TestSignUpAssignsRoles(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/auth/signup", "", fiber.Map{
		"email":    "admin@test.local",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, models.RoleAdmin, user["role"])
	assert.Equal(t, "admin", user["username"])

	status, body = doJSON(t, app, http.MethodPost, "/auth/signup", "", fiber.Map{
		"email":    "player@test.local",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, status)
	user = body["user"].(map[string]interface{})
	assert.Equal(t, models.RoleUser, user["role"])

	// duplicate email
	status, body = doJSON(t, app, http.MethodPost, "/auth/signup", "", fiber.Map{
		"email":    "player@test.local",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Email already registered", body["error"])
}

func TestSignInAndSession(t *testing.T) {
	app, _ := setupTestApp(t)
	signUp(t, app, "player@test.local")

	status, body := doJSON(t, app, http.MethodPost, "/auth/signin", "", fiber.Map{
		"email":    "player@test.local",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	status, body = doJSON(t, app, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, body["user"])

	status, _ = doJSON(t, app, http.MethodPost, "/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, status)

	// session gone after signout
	status, body = doJSON(t, app, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["user"])

	status, body = doJSON(t, app, http.MethodPost, "/auth/signin", "", fiber.Map{
		"email":    "player@test.local",
		"password": "wrongpass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid email or password", body["error"])
}

func TestJoinApprovalFlow(t *testing.T) {
	app, db := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")

	tournamentID := createTournament(t, app, adminToken)

	// non-admins cannot create tournaments
	status, _ := doJSON(t, app, http.MethodPost, "/tournaments", userToken, fiber.Map{
		"title":      "Nope",
		"start_time": time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/join", userToken, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.Contains(t, body["message"], "Waiting for admin approval")

	// duplicate join while pending
	status, body = doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/join", userToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Your request is still pending admin approval", body["error"])

	var request models.TournamentRequest
	require.NoError(t, db.First(&request, "tournament_id = ?", tournamentID).Error)

	status, _ = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/tournaments/%s/requests/%s/approve", tournamentID, request.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	// exactly one participant, payment pending
	var participants []models.TournamentParticipant
	require.NoError(t, db.Find(&participants, "tournament_id = ?", tournamentID).Error)
	require.Len(t, participants, 1)
	assert.Equal(t, models.PaymentPending, participants[0].PaymentStatus)

	// approving twice conflicts
	status, body = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/tournaments/%s/requests/%s/approve", tournamentID, request.ID), adminToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "already approved")

	// joining again after approval
	status, body = doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/join", userToken, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "You are already registered for this tournament", body["error"])
}

func TestPaymentVerificationFlow(t *testing.T) {
	app, db := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")
	otherToken := signUp(t, app, "rival@test.local")

	tournamentID := createTournament(t, app, adminToken)
	joinAndApprove(t, app, db, adminToken, userToken, tournamentID)
	joinAndApprove(t, app, db, adminToken, otherToken, tournamentID)

	// amount outside the configured bounds
	status, body := doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/payment", userToken, fiber.Map{
		"payer_name": "Player One",
		"utr_number": "UTR0001",
		"amount":     50000,
	})
	assert.Equal(t, http.StatusBadRequest, status, "body: %v", body)

	status, body = doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/payment", userToken, fiber.Map{
		"payer_name": "Player One",
		"utr_number": "UTR0001",
		"amount":     100,
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)

	var payment models.PaymentRequest
	require.NoError(t, db.First(&payment, "tournament_id = ? AND status = ?", tournamentID, models.RequestPending).Error)

	status, _ = doJSON(t, app, http.MethodPost, "/payments/requests/"+payment.ID+"/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, status)

	// the payer's participant row is completed, the rival's untouched
	var participants []models.TournamentParticipant
	require.NoError(t, db.Order("joined_at ASC").Find(&participants, "tournament_id = ?", tournamentID).Error)
	require.Len(t, participants, 2)
	for _, p := range participants {
		if p.UserID == payment.UserID {
			assert.Equal(t, models.PaymentCompleted, p.PaymentStatus)
		} else {
			assert.Equal(t, models.PaymentPending, p.PaymentStatus)
		}
	}

	// non-participants cannot submit payment proofs
	outsiderToken := signUp(t, app, "lurker@test.local")
	status, _ = doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/payment", outsiderToken, fiber.Map{
		"payer_name": "Lurker",
		"utr_number": "UTR0002",
		"amount":     100,
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestPublicParticipantListHidesContactInfo(t *testing.T) {
	app, db := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")

	tournamentID := createTournament(t, app, adminToken)
	joinAndApprove(t, app, db, adminToken, userToken, tournamentID)

	// no Authorization header: this endpoint is public
	req := httptest.NewRequest(http.MethodGet, "/tournaments/"+tournamentID+"/participants?payment_status=all", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `"username":"player"`)
	assert.NotContains(t, body, "@test.local")
	assert.NotContains(t, body, `"role"`)
}

func TestChatRequiresParticipation(t *testing.T) {
	app, db := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")
	outsiderToken := signUp(t, app, "lurker@test.local")

	tournamentID := createTournament(t, app, adminToken)
	joinAndApprove(t, app, db, adminToken, userToken, tournamentID)

	status, body := doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/chat", outsiderToken, fiber.Map{
		"message": "hello?",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "You must be a participant to chat in this tournament", body["error"])

	status, _ = doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/chat", userToken, fiber.Map{
		"message": "  gl hf  ",
	})
	require.Equal(t, http.StatusCreated, status)

	status, _ = doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/chat", userToken, fiber.Map{
		"message": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	var messages []models.ChatMessage
	require.NoError(t, db.Find(&messages, "tournament_id = ?", tournamentID).Error)
	require.Len(t, messages, 1)
	assert.Equal(t, "gl hf", messages[0].Message)
}

func TestRoomLifecycle(t *testing.T) {
	app, _ := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")

	tournamentID := createTournament(t, app, adminToken)

	// room not published yet
	status, body := doJSON(t, app, http.MethodGet, "/tournaments/"+tournamentID+"/room", userToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "room details not available", body["error"])

	// only admins can publish
	status, _ = doJSON(t, app, http.MethodPut, "/tournaments/"+tournamentID+"/room", userToken, fiber.Map{
		"room_id":       "12345",
		"room_password": "pw",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPut, "/tournaments/"+tournamentID+"/room", adminToken, fiber.Map{
		"room_id":       "12345",
		"room_password": "pw",
	})
	require.Equal(t, http.StatusOK, status)

	// upsert replaces, never duplicates
	status, _ = doJSON(t, app, http.MethodPut, "/tournaments/"+tournamentID+"/room", adminToken, fiber.Map{
		"room_id":       "67890",
		"room_password": "pw2",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, "/tournaments/"+tournamentID+"/room", userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "67890", body["room_id"])
}

func TestAdminDashboardStats(t *testing.T) {
	app, db := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")

	// admins only
	status, _ := doJSON(t, app, http.MethodGet, "/admin/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	tournamentID := createTournament(t, app, adminToken)
	joinAndApprove(t, app, db, adminToken, userToken, tournamentID)

	status, body := doJSON(t, app, http.MethodPost, "/tournaments/"+tournamentID+"/payment", userToken, fiber.Map{
		"payer_name": "Player One",
		"utr_number": "UTR0001",
		"amount":     100,
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)

	status, body = doJSON(t, app, http.MethodGet, "/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["total_users"])
	assert.EqualValues(t, 1, body["total_tournaments"])
	assert.EqualValues(t, 1, body["active_participants"])
	assert.EqualValues(t, 1000, body["total_prize_pool"])
	assert.EqualValues(t, 1, body["pending_payments"])
}

func TestProfileAndHistory(t *testing.T) {
	app, db := setupTestApp(t)

	adminToken := signUp(t, app, "admin@test.local")
	userToken := signUp(t, app, "player@test.local")

	status, body := doJSON(t, app, http.MethodPut, "/profile", userToken, fiber.Map{
		"game_id":   "PG-777",
		"game_name": "PlayerOne",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "PG-777", body["game_id"])

	tournamentID := createTournament(t, app, adminToken)
	joinAndApprove(t, app, db, adminToken, userToken, tournamentID)

	req := httptest.NewRequest(http.MethodGet, "/profile/tournaments", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history, 1)

	// admin-only user search
	status, _ = doJSON(t, app, http.MethodGet, "/users/search?q=player", userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	req = httptest.NewRequest(http.MethodGet, "/users/search?q=player", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 1)
	assert.Equal(t, "player", users[0]["username"])
}
