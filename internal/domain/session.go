package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session stores a hashed refresh token; the raw token never touches the
// database.
type Session struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	RefreshTokenHash string     `gorm:"size:128;not null;uniqueIndex" json:"-"`
	UserAgent        string     `gorm:"size:512" json:"user_agent"`
	IP               string     `gorm:"size:64" json:"ip"`
	ExpiresAt        time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
