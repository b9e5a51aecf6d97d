package service

import (
	"context"

	"admin-auth/internal/domain"
	"admin-auth/internal/dto"
)

type AuthService interface {
	RequestOtp(ctx context.Context, email string) error
	VerifyOtp(ctx context.Context, r dto.VerifyOtpRequest, ip string) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, refreshToken string) error
	LogoutAllForUser(ctx context.Context, userID domain.UserID) error
	Sessions(ctx context.Context, userID domain.UserID) ([]domain.SessionInfo, error)
}
