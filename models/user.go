package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthAccount holds sign-in credentials only. Profile data lives on User,
// which is created lazily on the first authenticated session.
type AuthAccount struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// User is the public profile row. Its ID is the same as the auth account's.
// Never deleted by the application.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"index"`
	Role      string    `json:"role" gorm:"not null;default:'user'"`
	GameID    *string   `json:"game_id,omitempty"`
	GameName  *string   `json:"game_name,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PublicUser is the restricted profile shape embedded in participant-facing
// views (participants, teams, chat). It reads from the users table but
// carries no email or role, so those never leave the admin surfaces.
type PublicUser struct {
	ID       string  `json:"id" gorm:"primaryKey"`
	Username string  `json:"username"`
	GameID   *string `json:"game_id,omitempty"`
	GameName *string `json:"game_name,omitempty"`
}

func (PublicUser) TableName() string { return "users" }

type Session struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
