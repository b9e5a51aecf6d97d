package domain

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one device session. Token is the opaque credential the
// client holds (64 random bytes, hex); it is never logged. ExpiresAt
// slides forward on every successful refresh, so only a fully idle
// session ever expires.
type RefreshToken struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" db:"id"`
	UserID     UserID    `gorm:"type:uuid;not null;index:idx_refresh_tokens_user" db:"user_id"`
	Token      string    `gorm:"type:text;uniqueIndex:ux_refresh_tokens_token" db:"token"`
	DeviceID   *string   `gorm:"type:text" db:"device_id"`
	DeviceInfo *string   `gorm:"type:text" db:"device_info"`
	IPAddress  *string   `gorm:"type:inet" db:"ip_address"`
	ExpiresAt  time.Time `gorm:"not null;index:idx_refresh_tokens_expires" db:"expires_at"`
	CreatedAt  time.Time `gorm:"not null" db:"created_at"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) Active(now time.Time) bool { return now.Before(t.ExpiresAt) }

// SessionInfo is the sanitized per-device view returned in conflict
// responses and the session listing. No token material.
type SessionInfo struct {
	DeviceID   *string   `json:"deviceId"`
	DeviceInfo *string   `json:"deviceInfo"`
	IPAddress  *string   `json:"ipAddress"`
	CreatedAt  time.Time `json:"createdAt"`
}
