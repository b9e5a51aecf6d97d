package domain

import "time"

// AdminAccount mirrors the account table owned by the credential store.
// This service reads it for identity resolution; rows are created and
// mutated out of band (the block flag triggers session teardown via the
// AccountBlocked event, see internal/events).
type AdminAccount struct {
	ID        UserID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Email     string    `gorm:"type:citext;uniqueIndex:ux_admin_accounts_email" db:"email" json:"email"`
	Name      string    `gorm:"type:text" db:"name" json:"name"`
	PhotoURL  string    `gorm:"type:text" db:"photo_url" json:"photoUrl"`
	Role      string    `gorm:"type:text;not null;default:'admin'" db:"role" json:"role"`
	Blocked   bool      `gorm:"not null;default:false" db:"blocked" json:"blocked"`
	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (AdminAccount) TableName() string { return "admin_accounts" }
