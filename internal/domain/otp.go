package domain

import "time"

// OtpRequest is one issued passcode. Verification only ever considers the
// newest row per email; superseded rows are deleted at issuance. A row is
// single-use: once Consumed flips to true it can never verify again.
type OtpRequest struct {
	ID        OtpRequestID `gorm:"type:uuid;primaryKey" db:"id"`
	Email     string       `gorm:"type:citext;not null;index:idx_otp_requests_email" db:"email"`
	OtpHash   []byte       `gorm:"type:bytea;not null" db:"otp_hash"`
	ExpiresAt time.Time    `gorm:"not null;index:idx_otp_requests_expires" db:"expires_at"`
	Consumed  bool         `gorm:"not null;default:false" db:"consumed"`
	CreatedAt time.Time    `gorm:"not null" db:"created_at"`
}

func (OtpRequest) TableName() string { return "otp_requests" }

func (o *OtpRequest) Expired(now time.Time) bool { return now.After(o.ExpiresAt) }
