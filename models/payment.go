package models

import (
	"time"
)

// PaymentRequest is a user's claim of having paid a tournament's entry fee,
// identified by the bank transfer's UTR number. pending → {approved, rejected}.
type PaymentRequest struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index"`
	UserID       string    `json:"user_id" gorm:"not null;index"`
	PayerName    string    `json:"payer_name" gorm:"not null"`
	UTRNumber    string    `json:"utr_number" gorm:"not null"`
	Amount       float64   `json:"amount"`
	Status       string    `json:"status" gorm:"default:'pending'"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	User       *User       `json:"users,omitempty" gorm:"foreignKey:UserID"`
	Tournament *Tournament `json:"tournaments,omitempty" gorm:"foreignKey:TournamentID"`
}

// PaymentSettings is a singleton row (id = "default") holding the UPI
// address, QR image and accepted amount bounds shown on the payment page.
type PaymentSettings struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	UPIID        string    `json:"upi_id" gorm:"column:upi_id"`
	QRImageURL   string    `json:"qr_image_url" gorm:"column:qr_image_url"`
	Instructions string    `json:"instructions"`
	MinAmount    float64   `json:"min_amount" gorm:"default:0"`
	MaxAmount    float64   `json:"max_amount" gorm:"default:10000"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (PaymentSettings) TableName() string { return "payment_settings" }
