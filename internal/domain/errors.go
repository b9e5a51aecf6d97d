package domain

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("account not found")
	ErrOtpRejected  = errors.New("invalid or expired code")
	ErrUnauthorized = errors.New("invalid or expired refresh token")
)

// ConflictError reports that the account already has an active session on
// another device. The OTP is left unconsumed, so the caller may retry the
// same code with the logout-from-other-devices override.
type ConflictError struct {
	Sessions []SessionInfo
}

func (e *ConflictError) Error() string { return "already logged in on another device" }
