package services

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tournament-registration-system/models"
	"tournament-registration-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PaymentService struct {
	DB   *gorm.DB
	Feed *Changefeed
}

func NewPaymentService(db *gorm.DB, feed *Changefeed) *PaymentService {
	return &PaymentService{DB: db, Feed: feed}
}

// fetchOrCreateSettings returns the singleton payment settings row,
// seeding the defaults on first access.
func (s *PaymentService) fetchOrCreateSettings() (*models.PaymentSettings, error) {
	var settings models.PaymentSettings
	err := s.DB.First(&settings, "id = ?", "default").Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.PaymentSettings{
			ID:           "default",
			UPIID:        "darkevil@yespop",
			Instructions: "Please make the payment using the QR code or UPI ID above.",
			MinAmount:    0,
			MaxAmount:    10000,
		}
		if err := s.DB.Create(&settings).Error; err != nil {
			// lost a seed race, re-read
			if rerr := s.DB.First(&settings, "id = ?", "default").Error; rerr != nil {
				return nil, rerr
			}
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *PaymentService) GetSettings(c *fiber.Ctx) error {
	settings, err := s.fetchOrCreateSettings()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment settings"})
	}
	return c.JSON(settings)
}

type settingsRequest struct {
	UPIID        string  `json:"upi_id" validate:"required"`
	Instructions string  `json:"instructions"`
	MinAmount    float64 `json:"min_amount" validate:"gte=0"`
	MaxAmount    float64 `json:"max_amount" validate:"gt=0"`
}

func (s *PaymentService) UpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if req.MaxAmount < req.MinAmount {
		return c.Status(400).JSON(fiber.Map{"error": "max_amount must be >= min_amount"})
	}

	settings, err := s.fetchOrCreateSettings()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment settings"})
	}
	settings.UPIID = req.UPIID
	settings.Instructions = req.Instructions
	settings.MinAmount = req.MinAmount
	settings.MaxAmount = req.MaxAmount
	if err := s.DB.Save(settings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update payment settings"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableSettings, Action: ActionUpdate, RowID: settings.ID})
	return c.JSON(settings)
}

// UploadQR replaces the payment QR image. Stored on R2 when configured,
// otherwise on local disk under /uploads.
func (s *PaymentService) UploadQR(c *fiber.Ctx) error {
	file, err := c.FormFile("qr")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "qr file is required"})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	key := fmt.Sprintf("payment-qr/qr-%d%s", time.Now().UnixMilli(), ext)

	var url string
	if utils.R2Enabled() {
		url, err = utils.UploadFileToR2(file, key)
	} else {
		var name string
		name, err = utils.SaveFile(file, key)
		url = "/uploads/" + name
	}
	if err != nil {
		log.Printf("❌ QR upload failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "failed to store QR image"})
	}

	settings, err := s.fetchOrCreateSettings()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment settings"})
	}
	settings.QRImageURL = url
	if err := s.DB.Save(settings).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to update payment settings"})
	}

	s.Feed.Publish(ChangeEvent{Table: TableSettings, Action: ActionUpdate, RowID: settings.ID})
	return c.JSON(fiber.Map{"qr_image_url": url})
}

type paymentSubmission struct {
	PayerName string  `json:"payer_name" validate:"required"`
	UTRNumber string  `json:"utr_number" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
}

// SubmitPaymentRequest records a participant's payment proof for admin
// verification.
func (s *PaymentService) SubmitPaymentRequest(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	tournamentID := c.Params("id")

	var req paymentSubmission
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	var participant models.TournamentParticipant
	err := s.DB.First(&participant, "tournament_id = ? AND user_id = ?", tournamentID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(403).JSON(fiber.Map{"error": "You must be an approved participant to submit a payment"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to verify participation"})
	}

	settings, err := s.fetchOrCreateSettings()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment settings"})
	}
	if req.Amount < settings.MinAmount || req.Amount > settings.MaxAmount {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("amount must be between %.2f and %.2f", settings.MinAmount, settings.MaxAmount),
		})
	}

	var existing models.PaymentRequest
	err = s.DB.First(&existing, "tournament_id = ? AND user_id = ? AND status = ?",
		tournamentID, userID, models.RequestPending).Error
	if err == nil {
		return c.Status(409).JSON(fiber.Map{"error": "You already have a payment verification pending"})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(500).JSON(fiber.Map{"error": "failed to check existing payments"})
	}

	payment := models.PaymentRequest{
		ID:           uuid.NewString(),
		TournamentID: tournamentID,
		UserID:       userID,
		PayerName:    strings.TrimSpace(req.PayerName),
		UTRNumber:    strings.TrimSpace(req.UTRNumber),
		Amount:       req.Amount,
		Status:       models.RequestPending,
	}
	if err := s.DB.Create(&payment).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to submit payment request"})
	}

	s.Feed.Publish(ChangeEvent{Table: TablePayments, Action: ActionInsert, TournamentID: tournamentID, RowID: payment.ID})
	return c.Status(201).JSON(fiber.Map{
		"message": "Payment verification request submitted! Waiting for admin approval.",
		"request": payment,
	})
}

func (s *PaymentService) fetchPendingPayments() ([]models.PaymentRequest, error) {
	var requests []models.PaymentRequest
	err := s.DB.Preload("User").Preload("Tournament").
		Where("status = ?", models.RequestPending).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *PaymentService) GetPendingPaymentRequests(c *fiber.Ctx) error {
	requests, err := s.fetchPendingPayments()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment requests"})
	}
	return c.JSON(requests)
}

// ApprovePaymentRequest marks the payment verified and flips the matching
// participant to completed in one transaction.
func (s *PaymentService) ApprovePaymentRequest(c *fiber.Ctx) error {
	requestID := c.Params("request_id")

	var payment models.PaymentRequest
	err := s.DB.First(&payment, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "payment request not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment request"})
	}
	if payment.Status != models.RequestPending {
		return c.Status(409).JSON(fiber.Map{"error": fmt.Sprintf("payment request already %s", payment.Status)})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PaymentRequest{}).
			Where("id = ?", payment.ID).
			Update("status", models.RequestApproved).Error; err != nil {
			return err
		}
		res := tx.Model(&models.TournamentParticipant{}).
			Where("tournament_id = ? AND user_id = ?", payment.TournamentID, payment.UserID).
			Update("payment_status", models.PaymentCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Printf("⚠️  payment %s approved but no participant row for user %s in tournament %s",
				payment.ID, payment.UserID, payment.TournamentID)
		}
		return nil
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to approve payment"})
	}

	s.Feed.Publish(ChangeEvent{Table: TablePayments, Action: ActionUpdate, TournamentID: payment.TournamentID, RowID: payment.ID})
	s.Feed.Publish(ChangeEvent{Table: TableParticipants, Action: ActionUpdate, TournamentID: payment.TournamentID})
	return c.JSON(fiber.Map{"status": models.RequestApproved})
}

func (s *PaymentService) RejectPaymentRequest(c *fiber.Ctx) error {
	requestID := c.Params("request_id")

	var payment models.PaymentRequest
	err := s.DB.First(&payment, "id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "payment request not found"})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payment request"})
	}
	if payment.Status != models.RequestPending {
		return c.Status(409).JSON(fiber.Map{"error": fmt.Sprintf("payment request already %s", payment.Status)})
	}

	if err := s.DB.Model(&models.PaymentRequest{}).
		Where("id = ?", payment.ID).
		Update("status", models.RequestRejected).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to reject payment"})
	}

	s.Feed.Publish(ChangeEvent{Table: TablePayments, Action: ActionUpdate, TournamentID: payment.TournamentID, RowID: payment.ID})
	return c.JSON(fiber.Map{"status": models.RequestRejected})
}

// GetMyPayments returns the caller's payment history across tournaments.
func (s *PaymentService) GetMyPayments(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var requests []models.PaymentRequest
	err := s.DB.Preload("Tournament").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch payments"})
	}
	return c.JSON(requests)
}

func (s *PaymentService) WatchPaymentRequests(c *fiber.Ctx) error {
	return streamResync(c, s.Feed, TablePayments, "", "payment_requests", func() (interface{}, error) {
		return s.fetchPendingPayments()
	})
}
