package entity

import (
	"time"

	"meetsync/core/entity"

	"github.com/google/uuid"
)

// CalendarConnection stores a user's calendar provider link and its OAuth
// tokens. Disconnecting flips is_active rather than deleting the row.
type CalendarConnection struct {
	entity.BaseEntity
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Provider       string    `db:"provider" json:"provider"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CalendarEmail  string    `db:"calendar_email" json:"calendar_email"`
	IsActive       bool      `db:"is_active" json:"is_active"`
}

const ProviderGoogle = "google"
