package impl

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"admin-auth/internal/domain"
	"admin-auth/internal/dto"
	"admin-auth/internal/netutil"
	"admin-auth/internal/observability/metrics"
	"admin-auth/internal/service"
	"admin-auth/internal/store"

	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	otpDigits   = 6
	otpHashCost = 10 // bcrypt rounds
)

type AuthConfig struct {
	OtpTTL     time.Duration // e.g. 10 * time.Minute
	RefreshTTL time.Duration // e.g. 30 * 24h
}

var _ service.AuthService = (*AuthServiceImpl)(nil)

type AuthServiceImpl struct {
	store  *store.Store
	tokens service.TokenService
	sender service.OtpSender
	cfg    AuthConfig

	now          func() time.Time
	generateCode func() (string, error)
}

func NewAuthServiceImpl(st *store.Store, tokens service.TokenService, sender service.OtpSender, cfg AuthConfig) *AuthServiceImpl {
	if cfg.OtpTTL <= 0 {
		cfg.OtpTTL = 10 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &AuthServiceImpl{
		store:  st,
		tokens: tokens,
		sender: sender,
		cfg:    cfg,
		now: func() time.Time {
			return time.Now().UTC()
		},
		generateCode: randomDigits,
	}
}

// randomDigits draws a uniformly random zero-padded 6-digit code.
func randomDigits() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// RequestOtp issues a new passcode for the account behind email. The
// plaintext goes to the delivery hook only; the ledger keeps a bcrypt
// hash. Superseded codes for the same email are dropped so at most one
// live code exists per account.
func (a *AuthServiceImpl) RequestOtp(ctx context.Context, email string) error {
	result := "success"
	defer func() {
		metrics.OtpRequestsTotal.WithLabelValues(result).Inc()
	}()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		result = "invalid"
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrEmptyEmail)
	}
	if !emailPattern.MatchString(email) {
		result = "invalid"
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrBadEmail)
	}

	acc, err := a.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			result = "unknown_account"
			return domain.ErrNotFound
		}
		result = "failure"
		return err
	}
	if acc.Blocked {
		// A blocked account cannot start new sessions.
		result = "unknown_account"
		return domain.ErrNotFound
	}

	code, err := a.generateCode()
	if err != nil {
		result = "failure"
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), otpHashCost)
	if err != nil {
		result = "failure"
		return fmt.Errorf("hash otp: %w", err)
	}

	now := a.now()
	req := &domain.OtpRequest{
		Email:     email,
		OtpHash:   hash,
		ExpiresAt: now.Add(a.cfg.OtpTTL),
		CreatedAt: now,
	}
	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Otps().Create(ctx, req); err != nil {
			return err
		}
		return tx.Otps().DeleteOlderForEmail(ctx, email, req.ID)
	})
	if err != nil {
		result = "failure"
		return err
	}

	// Best effort: a dead mail relay must not fail the request. The code
	// itself is never logged here.
	if err := a.sender.Deliver(ctx, email, code); err != nil {
		slog.Error("otp delivery failed", "email", email, "error", err)
	}

	slog.Info("otp issued", "email", email, "expires_at", req.ExpiresAt)
	return nil
}

// VerifyOtp runs the login handshake: validate the code against the
// newest ledger row, resolve the single-active-device policy, and only
// then burn the code and open the session. A conflict leaves the code
// unconsumed so the caller can retry with the override flag.
func (a *AuthServiceImpl) VerifyOtp(ctx context.Context, r dto.VerifyOtpRequest, ip string) (*dto.LoginResponse, error) {
	result := "success"
	defer func() {
		metrics.OtpVerificationsTotal.WithLabelValues(result).Inc()
	}()

	email := strings.ToLower(strings.TrimSpace(r.Email))
	code := strings.TrimSpace(r.Otp)
	if email == "" {
		result = "invalid"
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrEmptyEmail)
	}
	if code == "" {
		result = "invalid"
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrEmptyOtp)
	}

	now := a.now()

	otp, err := a.store.Otps().LatestByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			result = "rejected"
			return nil, fmt.Errorf("%w: no request", domain.ErrOtpRejected)
		}
		result = "failure"
		return nil, err
	}
	if otp.Expired(now) {
		result = "rejected"
		return nil, fmt.Errorf("%w: expired", domain.ErrOtpRejected)
	}
	if otp.Consumed {
		result = "rejected"
		return nil, fmt.Errorf("%w: already used", domain.ErrOtpRejected)
	}
	if bcrypt.CompareHashAndPassword(otp.OtpHash, []byte(code)) != nil {
		result = "rejected"
		return nil, fmt.Errorf("%w: mismatch", domain.ErrOtpRejected)
	}

	acc, err := a.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			result = "unknown_account"
			return nil, domain.ErrNotFound
		}
		result = "failure"
		return nil, err
	}
	if acc.Blocked {
		result = "unknown_account"
		return nil, domain.ErrNotFound
	}

	deviceID := trimmedPtr(r.DeviceID)

	// Single-active-device policy, resolved before the code is consumed.
	hasDeviceSession := false
	if deviceID != nil {
		hasDeviceSession, err = a.store.RefreshTokens().HasActiveForUser(ctx, acc.ID, deviceID, now)
		if err != nil {
			result = "failure"
			return nil, err
		}
	}
	hasAnySession, err := a.store.RefreshTokens().HasActiveForUser(ctx, acc.ID, nil, now)
	if err != nil {
		result = "failure"
		return nil, err
	}
	if hasAnySession && !hasDeviceSession && !r.LogoutFromOtherDevices {
		sessions, err := a.store.RefreshTokens().ListActiveForUser(ctx, acc.ID, now)
		if err != nil {
			result = "failure"
			return nil, err
		}
		metrics.SessionConflictsTotal.Inc()
		result = "conflict"
		slog.Info("login conflict, other device active", "user_id", acc.ID, "sessions", len(sessions))
		return nil, &domain.ConflictError{Sessions: sessions}
	}
	if r.LogoutFromOtherDevices && deviceID != nil {
		revoked, err := a.store.RefreshTokens().DeleteOtherDevices(ctx, acc.ID, *deviceID)
		if err != nil {
			result = "failure"
			return nil, err
		}
		if revoked > 0 {
			metrics.SessionsRevokedTotal.WithLabelValues("other_devices").Add(float64(revoked))
			slog.Info("revoked other device sessions", "user_id", acc.ID, "count", revoked)
		}
	}

	refreshStr, err := a.tokens.NewRefreshTokenString()
	if err != nil {
		result = "failure"
		return nil, err
	}
	row := &domain.RefreshToken{
		UserID:     acc.ID,
		Token:      refreshStr,
		DeviceID:   deviceID,
		DeviceInfo: truncatedPtr(r.DeviceInfo),
		IPAddress:  ipPtr(ip),
		ExpiresAt:  now.Add(a.cfg.RefreshTTL),
		CreatedAt:  now,
	}

	// Consume and create the session as one unit. The consume is a
	// conditional single-row update, so a concurrent double submit loses
	// here with "already used".
	err = a.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Otps().Consume(ctx, otp.ID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return fmt.Errorf("%w: already used", domain.ErrOtpRejected)
			}
			return err
		}
		return tx.RefreshTokens().Create(ctx, row)
	})
	if err != nil {
		if errors.Is(err, domain.ErrOtpRejected) {
			result = "rejected"
		} else {
			result = "failure"
		}
		return nil, err
	}

	access, err := a.tokens.IssueAccess(acc.ID, acc.Email)
	if err != nil {
		// The code is burned with no session issued; the client must
		// request a new one.
		result = "failure"
		return nil, err
	}

	metrics.TokensIssuedTotal.WithLabelValues("login", "success").Inc()
	slog.Info("otp login", "user_id", acc.ID, "device_id", row.DeviceID)

	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refreshStr,
		User:         userResponse(acc),
	}, nil
}

// Refresh exchanges a live refresh token for a new access token and
// slides the session expiry forward. The opaque refresh string itself is
// never rotated.
func (a *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	result := "success"
	defer func() {
		metrics.TokensIssuedTotal.WithLabelValues("refresh", result).Inc()
	}()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		result = "invalid"
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrEmptyToken)
	}

	now := a.now()
	row, err := a.store.RefreshTokens().GetActiveByToken(ctx, refreshToken, now)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			result = "unauthorized"
			return nil, domain.ErrUnauthorized
		}
		result = "failure"
		return nil, err
	}

	if err := a.store.RefreshTokens().ExtendExpiry(ctx, row.ID, now.Add(a.cfg.RefreshTTL)); err != nil {
		result = "failure"
		return nil, err
	}

	acc, err := a.store.Accounts().GetByID(ctx, row.UserID)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		result = "failure"
		return nil, err
	}
	if err != nil || acc.Blocked {
		// Owner gone or blocked: every outstanding session dies now.
		if _, derr := a.store.RefreshTokens().DeleteAllForUser(ctx, row.UserID); derr != nil {
			slog.Error("session teardown failed", "user_id", row.UserID, "error", derr)
		}
		result = "unauthorized"
		return nil, domain.ErrUnauthorized
	}

	access, err := a.tokens.IssueAccess(acc.ID, acc.Email)
	if err != nil {
		result = "failure"
		return nil, err
	}
	return &dto.RefreshResponse{AccessToken: access}, nil
}

// Logout deletes exactly one session. Unknown tokens are a no-op.
func (a *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrEmptyToken)
	}
	if err := a.store.RefreshTokens().DeleteByToken(ctx, refreshToken); err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.WithLabelValues("single").Inc()
	return nil
}

// LogoutAll resolves the owner from a live refresh token, then deletes
// every session the owner has.
func (a *AuthServiceImpl) LogoutAll(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrEmptyToken)
	}
	row, err := a.store.RefreshTokens().GetActiveByToken(ctx, refreshToken, a.now())
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrUnauthorized
		}
		return err
	}
	return a.LogoutAllForUser(ctx, row.UserID)
}

// LogoutAllForUser is the teardown primitive: explicit logout-everywhere
// and the account-blocked cascade both land here.
func (a *AuthServiceImpl) LogoutAllForUser(ctx context.Context, userID domain.UserID) error {
	revoked, err := a.store.RefreshTokens().DeleteAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	if revoked > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues("all").Add(float64(revoked))
	}
	slog.Info("all sessions revoked", "user_id", userID, "count", revoked)
	return nil
}

func (a *AuthServiceImpl) Sessions(ctx context.Context, userID domain.UserID) ([]domain.SessionInfo, error) {
	return a.store.RefreshTokens().ListActiveForUser(ctx, userID, a.now())
}

func userResponse(acc *domain.AdminAccount) dto.UserResponse {
	return dto.UserResponse{
		ID:       acc.ID.String(),
		Email:    acc.Email,
		Name:     acc.Name,
		PhotoURL: acc.PhotoURL,
		Role:     acc.Role,
	}
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func truncatedPtr(s *string) *string {
	if p := trimmedPtr(s); p != nil {
		v := netutil.TruncateDeviceInfo(*p)
		return &v
	}
	return nil
}

func ipPtr(ip string) *string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return &normalized
	}
	return nil
}
