package impl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"admin-auth/internal/domain"
	"admin-auth/internal/dto"
	"admin-auth/internal/events"
	"admin-auth/internal/jwtsigner"
	"admin-auth/internal/observability/metrics"
	"admin-auth/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	metrics.MustRegister("auth-test")
	os.Exit(m.Run())
}

type captureSender struct {
	email string
	code  string
	calls int
}

func (c *captureSender) Deliver(_ context.Context, email, code string) error {
	c.email = email
	c.code = code
	c.calls++
	return nil
}

type fixture struct {
	svc    *AuthServiceImpl
	tokens *TokenServiceImpl
	store  *store.Store
	sender *captureSender
	acc    *domain.AdminAccount
	clock  *time.Time
}

func setupAuth(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.AdminAccount{}, &domain.OtpRequest{}, &domain.RefreshToken{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	st := store.New(db)

	acc := &domain.AdminAccount{
		ID:    uuid.New(),
		Email: "admin@example.com",
		Name:  "Test Admin",
		Role:  "admin",
	}
	if err := db.Create(acc).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}

	signer, err := jwtsigner.New(strings.Repeat("k", 32), "admin-auth-test")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	tokens := NewTokenServiceHS256(signer, time.Hour)

	sender := &captureSender{}
	svc := NewAuthServiceImpl(st, tokens, sender, AuthConfig{})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &now
	svc.now = func() time.Time { return *clock }

	seq := 0
	svc.generateCode = func() (string, error) {
		seq++
		return fmt.Sprintf("%06d", seq), nil
	}

	return &fixture{svc: svc, tokens: tokens, store: st, sender: sender, acc: acc, clock: clock}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) login(t *testing.T, deviceID string, override bool) *dto.LoginResponse {
	t.Helper()
	ctx := context.Background()
	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	var dev *string
	if deviceID != "" {
		dev = &deviceID
	}
	res, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{
		Email:                  f.acc.Email,
		Otp:                    f.sender.code,
		DeviceID:               dev,
		LogoutFromOtherDevices: override,
	}, "203.0.113.9")
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	return res
}

func (f *fixture) sessionCount(t *testing.T, userID domain.UserID) int {
	t.Helper()
	sessions, err := f.svc.Sessions(context.Background(), userID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	return len(sessions)
}

func TestRequestOtpStoresHashedCode(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if err := f.svc.RequestOtp(ctx, "Admin@Example.com"); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if f.sender.email != "admin@example.com" {
		t.Fatalf("expected delivery to normalized email, got %q", f.sender.email)
	}
	if len(f.sender.code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", f.sender.code)
	}

	row, err := f.store.Otps().LatestByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if string(row.OtpHash) == f.sender.code {
		t.Fatalf("plaintext code stored")
	}
	if err := bcrypt.CompareHashAndPassword(row.OtpHash, []byte(f.sender.code)); err != nil {
		t.Fatalf("stored hash does not match delivered code: %v", err)
	}
	if row.Consumed {
		t.Fatalf("fresh code marked consumed")
	}
	wantExpiry := f.clock.Add(10 * time.Minute)
	if d := row.ExpiresAt.Sub(wantExpiry); d < -time.Second || d > time.Second {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, row.ExpiresAt)
	}
}

func TestRequestOtpUnknownOrBlockedAccount(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if err := f.svc.RequestOtp(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := f.store.Accounts().SetBlocked(ctx, f.acc.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := f.svc.RequestOtp(ctx, f.acc.Email); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for blocked account, got %v", err)
	}
	if f.sender.calls != 0 {
		t.Fatalf("no code should be delivered, got %d calls", f.sender.calls)
	}
}

func TestRequestOtpRejectsMalformedEmail(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	for _, email := range []string{"", "   ", "not-an-email", "a b@example.com"} {
		if err := f.svc.RequestOtp(ctx, email); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("email %q: expected invalid input, got %v", email, err)
		}
	}
}

func TestRequestOtpSupersedesOlderCodes(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	firstCode := f.sender.code

	f.advance(time.Minute)
	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("second request: %v", err)
	}

	var count int64
	if err := f.store.DB.Model(&domain.OtpRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single live code, got %d rows", count)
	}

	_, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: firstCode}, "")
	if !errors.Is(err, domain.ErrOtpRejected) {
		t.Fatalf("superseded code must not verify, got %v", err)
	}

	res, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: f.sender.code}, "")
	if err != nil {
		t.Fatalf("newest code must verify: %v", err)
	}
	if res.RefreshToken == "" {
		t.Fatalf("missing refresh token")
	}
}

func TestVerifyOtpHappyPath(t *testing.T) {
	f := setupAuth(t)

	res := f.login(t, "device-a", false)

	identity, err := f.tokens.VerifyAccess(res.AccessToken)
	if err != nil {
		t.Fatalf("issued access token must verify: %v", err)
	}
	if identity.UserID != f.acc.ID || identity.Email != f.acc.Email {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if len(res.RefreshToken) != 128 {
		t.Fatalf("expected 128 hex chars of refresh token, got %d", len(res.RefreshToken))
	}
	if res.User.ID != f.acc.ID.String() || res.User.Email != f.acc.Email {
		t.Fatalf("unexpected user payload: %+v", res.User)
	}

	sessions, err := f.svc.Sessions(context.Background(), f.acc.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions))
	}
	s := sessions[0]
	if s.DeviceID == nil || *s.DeviceID != "device-a" {
		t.Fatalf("unexpected device id: %v", s.DeviceID)
	}
	if s.IPAddress == nil || *s.IPAddress != "203.0.113.9" {
		t.Fatalf("unexpected ip: %v", s.IPAddress)
	}
}

func TestVerifyOtpSingleUse(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	f.login(t, "device-a", false)
	code := f.sender.code

	dev := "device-a"
	_, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: code, DeviceID: &dev}, "")
	if !errors.Is(err, domain.ErrOtpRejected) {
		t.Fatalf("consumed code must be rejected, got %v", err)
	}
}

func TestVerifyOtpExpired(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	f.advance(11 * time.Minute)

	_, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: f.sender.code}, "")
	if !errors.Is(err, domain.ErrOtpRejected) {
		t.Fatalf("expired code must be rejected, got %v", err)
	}
}

func TestVerifyOtpWrongCodeLeavesRowUsable(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}

	_, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: "999999"}, "")
	if !errors.Is(err, domain.ErrOtpRejected) {
		t.Fatalf("wrong code must be rejected, got %v", err)
	}

	if _, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: f.sender.code}, ""); err != nil {
		t.Fatalf("correct code must still verify after a failed guess: %v", err)
	}
}

func TestConsumeIsSingleWinner(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	row, err := f.store.Otps().LatestByEmail(ctx, f.acc.Email)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}

	if err := f.store.Otps().Consume(ctx, row.ID); err != nil {
		t.Fatalf("first consume must win: %v", err)
	}
	if err := f.store.Otps().Consume(ctx, row.ID); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("second consume must lose, got %v", err)
	}
}

func TestVerifyConflictKeepsOtpUnconsumed(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	f.login(t, "device-a", false)

	f.advance(time.Minute)
	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	code := f.sender.code
	devB := "device-b"

	_, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: code, DeviceID: &devB}, "")
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(conflict.Sessions) != 1 {
		t.Fatalf("expected one conflicting session, got %d", len(conflict.Sessions))
	}
	if conflict.Sessions[0].DeviceID == nil || *conflict.Sessions[0].DeviceID != "device-a" {
		t.Fatalf("conflict must report the competing device, got %v", conflict.Sessions[0].DeviceID)
	}

	row, err := f.store.Otps().LatestByEmail(ctx, f.acc.Email)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if row.Consumed {
		t.Fatalf("conflict must not burn the code")
	}

	// Same code, override set: the other device dies and login goes through.
	res, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{
		Email:                  f.acc.Email,
		Otp:                    code,
		DeviceID:               &devB,
		LogoutFromOtherDevices: true,
	}, "")
	if err != nil {
		t.Fatalf("override retry: %v", err)
	}
	if res.AccessToken == "" {
		t.Fatalf("missing access token")
	}

	sessions, err := f.svc.Sessions(ctx, f.acc.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected only the new device session, got %d", len(sessions))
	}
	if sessions[0].DeviceID == nil || *sessions[0].DeviceID != "device-b" {
		t.Fatalf("expected device-b to survive, got %v", sessions[0].DeviceID)
	}
}

func TestVerifySameDeviceSkipsConflict(t *testing.T) {
	f := setupAuth(t)

	f.login(t, "device-a", false)
	f.advance(time.Minute)
	f.login(t, "device-a", false)

	if n := f.sessionCount(t, f.acc.ID); n != 2 {
		t.Fatalf("expected both same-device sessions, got %d", n)
	}
}

func TestVerifyWithoutDeviceIDStillConflicts(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	f.login(t, "device-a", false)

	f.advance(time.Minute)
	if err := f.svc.RequestOtp(ctx, f.acc.Email); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	_, err := f.svc.VerifyOtp(ctx, dto.VerifyOtpRequest{Email: f.acc.Email, Otp: f.sender.code}, "")
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict for deviceless login, got %v", err)
	}
}

func TestRefreshSlidesExpiry(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	res := f.login(t, "device-a", false)

	f.advance(48 * time.Hour)
	refreshed, err := f.svc.Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := f.tokens.VerifyAccess(refreshed.AccessToken); err != nil {
		t.Fatalf("refreshed access token must verify: %v", err)
	}

	row, err := f.store.RefreshTokens().GetActiveByToken(ctx, res.RefreshToken, *f.clock)
	if err != nil {
		t.Fatalf("token row: %v", err)
	}
	wantExpiry := f.clock.Add(30 * 24 * time.Hour)
	if d := row.ExpiresAt.Sub(wantExpiry); d < -time.Second || d > time.Second {
		t.Fatalf("expected expiry slid to %v, got %v", wantExpiry, row.ExpiresAt)
	}
}

func TestRefreshRejectsUnknownAndExpired(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	if _, err := f.svc.Refresh(ctx, "no-such-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown token: expected unauthorized, got %v", err)
	}
	if _, err := f.svc.Refresh(ctx, "  "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty token: expected invalid input, got %v", err)
	}

	res := f.login(t, "device-a", false)
	f.advance(31 * 24 * time.Hour)
	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("idle session past expiry: expected unauthorized, got %v", err)
	}
}

func TestRefreshForBlockedOwnerRevokesEverything(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	res := f.login(t, "device-a", false)

	if err := f.store.Accounts().SetBlocked(ctx, f.acc.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, res.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("blocked owner: expected unauthorized, got %v", err)
	}
	if n := f.sessionCount(t, f.acc.ID); n != 0 {
		t.Fatalf("expected teardown of all sessions, got %d", n)
	}
}

func TestLogoutRemovesSingleSession(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	first := f.login(t, "device-a", false)
	f.advance(time.Minute)
	second := f.login(t, "device-a", false)

	if err := f.svc.Logout(ctx, first.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if n := f.sessionCount(t, f.acc.ID); n != 1 {
		t.Fatalf("expected one surviving session, got %d", n)
	}
	if _, err := f.svc.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("other session must still refresh: %v", err)
	}
	if _, err := f.svc.Refresh(ctx, first.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("logged out token must not refresh, got %v", err)
	}

	// Unknown tokens are a no-op, not an error.
	if err := f.svc.Logout(ctx, "never-issued"); err != nil {
		t.Fatalf("logout of unknown token: %v", err)
	}
}

func TestLogoutAllOnlyAffectsOwner(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	res := f.login(t, "device-a", false)
	f.advance(time.Minute)
	f.login(t, "device-a", false)

	other := uuid.New()
	otherRow := &domain.RefreshToken{
		UserID:    other,
		Token:     "other-user-token",
		ExpiresAt: f.clock.Add(24 * time.Hour),
		CreatedAt: *f.clock,
	}
	if err := f.store.RefreshTokens().Create(ctx, otherRow); err != nil {
		t.Fatalf("seed other session: %v", err)
	}

	if err := f.svc.LogoutAll(ctx, res.RefreshToken); err != nil {
		t.Fatalf("logout all: %v", err)
	}
	if n := f.sessionCount(t, f.acc.ID); n != 0 {
		t.Fatalf("expected all owner sessions gone, got %d", n)
	}
	if n := f.sessionCount(t, other); n != 1 {
		t.Fatalf("other user's session must survive, got %d", n)
	}

	if err := f.svc.LogoutAll(ctx, res.RefreshToken); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("dead token cannot authorize logout-all, got %v", err)
	}
}

func TestAccountBlockCascadesToSessions(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	bus := events.NewBus()
	bus.SubscribeAccountBlocked(func(ctx context.Context, ev events.AccountBlocked) error {
		return f.svc.LogoutAllForUser(ctx, ev.UserID)
	})
	accounts := NewAccountServiceImpl(f.store, bus)

	f.login(t, "device-a", false)

	if err := accounts.SetBlocked(ctx, f.acc.ID, true); err != nil {
		t.Fatalf("set blocked: %v", err)
	}
	if n := f.sessionCount(t, f.acc.ID); n != 0 {
		t.Fatalf("blocking must revoke every session, got %d", n)
	}
	acc, err := f.store.Accounts().GetByID(ctx, f.acc.ID)
	if err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if !acc.Blocked {
		t.Fatalf("blocked flag not persisted")
	}

	if err := accounts.SetBlocked(ctx, uuid.New(), true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown account: expected not found, got %v", err)
	}
}

func TestSessionsListsActiveNewestFirst(t *testing.T) {
	f := setupAuth(t)
	ctx := context.Background()

	f.login(t, "device-a", false)
	f.advance(time.Minute)
	f.login(t, "device-a", false)

	sessions, err := f.svc.Sessions(ctx, f.acc.ID)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(sessions))
	}
	if !sessions[0].CreatedAt.After(sessions[1].CreatedAt) {
		t.Fatalf("expected newest first, got %v then %v", sessions[0].CreatedAt, sessions[1].CreatedAt)
	}

	f.advance(31 * 24 * time.Hour)
	sessions, err = f.svc.Sessions(ctx, f.acc.ID)
	if err != nil {
		t.Fatalf("sessions after expiry: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expired sessions must not be listed, got %d", len(sessions))
	}
}
