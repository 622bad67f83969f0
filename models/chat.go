package models

import (
	"time"
)

// ChatMessage is a tournament-scoped message. Immutable once created,
// ordered by creation time.
type ChatMessage struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index"`
	UserID       string    `json:"user_id" gorm:"not null;index"`
	Message      string    `json:"message" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime;index"`

	User *PublicUser `json:"users,omitempty" gorm:"foreignKey:UserID"`
}
