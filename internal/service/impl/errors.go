package impl

import "errors"

var (
	ErrEmptyEmail = errors.New("empty email")
	ErrEmptyOtp   = errors.New("empty otp")
	ErrEmptyToken = errors.New("empty refresh token")
	ErrBadEmail   = errors.New("invalid email format")
)
