package dto

import "time"

type RequestOtpRequest struct {
	Email string `json:"email"`
}

type RequestOtpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type VerifyOtpRequest struct {
	Email                  string  `json:"email"`
	Otp                    string  `json:"otp"`
	DeviceID               *string `json:"deviceId,omitempty"`
	DeviceInfo             *string `json:"deviceInfo,omitempty"`
	LogoutFromOtherDevices bool    `json:"logoutFromOtherDevices,omitempty"`
}

type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

// UserResponse is the sanitized account projection. Never credential
// material.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoUrl"`
	Role     string `json:"role"`
}

type SessionResponse struct {
	DeviceID   *string   `json:"deviceId"`
	DeviceInfo *string   `json:"deviceInfo"`
	IPAddress  *string   `json:"ipAddress"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ConflictResponse struct {
	Error                     string            `json:"error"`
	Message                   string            `json:"message"`
	Sessions                  []SessionResponse `json:"sessions"`
	CanLogoutFromOtherDevices bool              `json:"canLogoutFromOtherDevices"`
}
