package services

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"tournament-registration-system/models"
	"tournament-registration-system/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

type AuthService struct {
	DB   *gorm.DB
	Feed *Changefeed

	adminEmails     map[string]bool
	legacyHeuristic bool
	sessionTTL      time.Duration
}

func NewAuthService(db *gorm.DB, feed *Changefeed) *AuthService {
	allow := make(map[string]bool)
	for _, e := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allow[e] = true
		}
	}
	if len(allow) == 0 {
		log.Println("⚠️  ADMIN_EMAILS not set — no account will get the admin role")
	}

	ttl := 168 * time.Hour
	if hours := os.Getenv("SESSION_TTL_HOURS"); hours != "" {
		if n, err := strconv.Atoi(hours); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Hour
		}
	}

	return &AuthService{
		DB:              db,
		Feed:            feed,
		adminEmails:     allow,
		legacyHeuristic: strings.EqualFold(os.Getenv("ADMIN_LOCALPART_HEURISTIC"), "true"),
		sessionTTL:      ttl,
	}
}

// UsernameFromEmail derives the default username: the email's local part.
func UsernameFromEmail(email string) string {
	return strings.Split(email, "@")[0]
}

// DeriveRole decides the role for a new profile from the admin allow-list.
// The legacy "local part contains admin" heuristic is off by default
// (ADMIN_LOCALPART_HEURISTIC=true enables it) and warns when it fires.
func DeriveRole(email string, adminEmails map[string]bool, legacyHeuristic bool) string {
	email = strings.ToLower(email)
	if adminEmails[email] {
		return models.RoleAdmin
	}
	if legacyHeuristic && strings.Contains(UsernameFromEmail(email), "admin") {
		log.Printf("⚠️  legacy admin heuristic matched %s — configure ADMIN_EMAILS instead", email)
		return models.RoleAdmin
	}
	return models.RoleUser
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *AuthService) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := UsernameFromEmail(email)

	var account models.AuthAccount
	err := s.DB.First(&account, "email = ?", email).Error
	if err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "Email already registered"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check email"})
	}

	var existing models.User
	err = s.DB.First(&existing, "username = ?", username).Error
	if err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "Username already taken"})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check username"})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to hash password"})
	}

	account = models.AuthAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.DB.Create(&account).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create account"})
	}

	user, err := s.ensureUserProfile(account.ID, email)
	if err != nil {
		log.Printf("❌ profile bootstrap failed for %s: %v", email, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to create profile"})
	}

	session, err := s.createSession(account.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create session"})
	}

	return c.Status(201).JSON(fiber.Map{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

func (s *AuthService) SignIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var account models.AuthAccount
	if err := s.DB.First(&account, "email = ?", email).Error; err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid email or password"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid email or password"})
	}

	// Profile bootstrap: make sure the users row exists before issuing a session.
	user, err := s.ensureUserProfile(account.ID, account.Email)
	if err != nil {
		log.Printf("❌ profile bootstrap failed for %s: %v", email, err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to load profile"})
	}

	session, err := s.createSession(account.ID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create session"})
	}

	return c.JSON(fiber.Map{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

func (s *AuthService) SignOut(c *fiber.Ctx) error {
	token, _ := c.Locals("session_token").(string)
	if token != "" {
		if err := s.DB.Delete(&models.Session{}, "token = ?", token).Error; err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to sign out"})
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

// GetSession resolves the caller's session, answering {"user": null} instead
// of 401 so clients can probe for an existing session on startup.
func (s *AuthService) GetSession(c *fiber.Ctx) error {
	token := utils.BearerToken(c.Get("Authorization"))
	if token == "" {
		return c.JSON(fiber.Map{"user": nil})
	}

	var session models.Session
	if err := s.DB.First(&session, "token = ?", token).Error; err != nil {
		return c.JSON(fiber.Map{"user": nil})
	}
	if time.Now().After(session.ExpiresAt) {
		s.DB.Delete(&session)
		return c.JSON(fiber.Map{"user": nil})
	}

	var account models.AuthAccount
	if err := s.DB.First(&account, "id = ?", session.UserID).Error; err != nil {
		return c.JSON(fiber.Map{"user": nil})
	}
	user, err := s.ensureUserProfile(account.ID, account.Email)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load profile"})
	}

	return c.JSON(fiber.Map{"user": user, "expires_at": session.ExpiresAt})
}

// ensureUserProfile creates the users row on the first authenticated session.
func (s *AuthService) ensureUserProfile(userID, email string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", userID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = models.User{
		ID:       userID,
		Username: UsernameFromEmail(email),
		Email:    email,
		Role:     DeriveRole(email, s.adminEmails, s.legacyHeuristic),
	}
	if err := s.DB.Create(&user).Error; err != nil {
		// Lost a race with a concurrent sign-in; the row exists now.
		if readErr := s.DB.First(&user, "id = ?", userID).Error; readErr == nil {
			return &user, nil
		}
		return nil, err
	}

	s.Feed.Publish(ChangeEvent{Table: TableUsers, Action: ActionInsert, RowID: user.ID})
	return &user, nil
}

func (s *AuthService) createSession(userID string) (*models.Session, error) {
	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.DB.Create(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
