package models

import (
	"time"
)

const (
	StatusUpcoming  = "upcoming"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

// statusWindow is the ±1 hour classification window around start_time.
const statusWindow = 3600000 * time.Millisecond

// Tournament represents a single registration-based tournament.
// Status is stored at creation time only ("upcoming") and is ALWAYS
// recomputed from StartTime on read — the stored value goes stale and
// must never be trusted.
type Tournament struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Slug            string    `json:"slug" gorm:"uniqueIndex"`
	Title           string    `json:"title" gorm:"not null"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"start_time" gorm:"not null;index"`
	EntryFee        float64   `json:"entry_fee" gorm:"default:0"`
	MaxParticipants int       `json:"max_participants" gorm:"default:2"`
	PrizePool       float64   `json:"prize_pool" gorm:"default:0"`
	Rules           string    `json:"rules"`
	Status          string    `json:"status" gorm:"default:'upcoming'"`
	CreatedBy       string    `json:"created_by" gorm:"index"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// DeriveStatus classifies a tournament relative to now:
// more than 1h in the future ⇒ upcoming, within ±1h ⇒ ongoing,
// more than 1h in the past ⇒ completed. The boundary is inclusive on
// the ongoing side.
func DeriveStatus(startTime, now time.Time) string {
	diff := startTime.Sub(now)
	if diff > statusWindow {
		return StatusUpcoming
	}
	if diff >= -statusWindow {
		return StatusOngoing
	}
	return StatusCompleted
}

// ApplyDerivedStatus overwrites the stale stored status with the derived one.
func (t *Tournament) ApplyDerivedStatus(now time.Time) {
	t.Status = DeriveStatus(t.StartTime, now)
}

// TournamentRequest links a user to a tournament they asked to join.
// pending → {approved, rejected}, both terminal. At most one request per
// (user, tournament) pair, enforced by an existence check before insert.
type TournamentRequest struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index"`
	UserID       string    `json:"user_id" gorm:"not null;index"`
	Status       string    `json:"status" gorm:"default:'pending'"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`

	User *User `json:"users,omitempty" gorm:"foreignKey:UserID"`
}

// TournamentParticipant is created when a join request is approved,
// with payment_status pending until the entry-fee payment is verified.
type TournamentParticipant struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	TournamentID  string    `json:"tournament_id" gorm:"not null;index"`
	UserID        string    `json:"user_id" gorm:"not null;index"`
	PaymentStatus string    `json:"payment_status" gorm:"default:'pending'"`
	TeamName      string    `json:"team_name,omitempty"`
	JoinedAt      time.Time `json:"joined_at" gorm:"autoCreateTime"`

	User       *PublicUser `json:"users,omitempty" gorm:"foreignKey:UserID"`
	Tournament *Tournament `json:"tournaments,omitempty" gorm:"foreignKey:TournamentID"`
}

// TournamentRoom holds the in-game room credentials for a tournament.
// At most one per tournament; editable only by admins, visible to all.
type TournamentRoom struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"uniqueIndex;not null"`
	RoomID       string    `json:"room_id"`
	RoomPassword string    `json:"room_password"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
