package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"admin-auth/internal/config"
	"admin-auth/internal/domain"
	"admin-auth/internal/events"
	"admin-auth/internal/jwtsigner"
	"admin-auth/internal/observability/logging"
	"admin-auth/internal/observability/metrics"
	"admin-auth/internal/service"
	impl "admin-auth/internal/service/impl"
	"admin-auth/internal/store"
	httpx "admin-auth/internal/transport/http"
	"admin-auth/pkg/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "auth",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	logger.Info("starting service")

	// Refuse to boot with a weak or missing signing key.
	signer, err := jwtsigner.New(cfg.SigningKey, cfg.Issuer)
	if err != nil {
		logger.Error("signing key", "error", err)
		os.Exit(1)
	}

	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	if err := gdb.AutoMigrate(&domain.AdminAccount{}, &domain.OtpRequest{}, &domain.RefreshToken{}); err != nil {
		logger.Error("auto migrate", "error", err)
		os.Exit(1)
	}

	metrics.MustRegister("auth")

	st := store.New(gdb)

	ts := impl.NewTokenServiceHS256(signer, cfg.AccessTTL)

	var sender service.OtpSender
	if cfg.SMTPAddr != "" {
		sender = impl.NewSMTPOtpSender(cfg.SMTPAddr, cfg.SMTPHost, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	} else {
		logger.Warn("SMTP_ADDR not set, OTP codes are logged instead of emailed")
		sender = &impl.DevOtpSender{}
	}

	as := impl.NewAuthServiceImpl(st, ts, sender, impl.AuthConfig{
		OtpTTL:     cfg.OtpTTL,
		RefreshTTL: cfg.RefreshTTL(),
	})

	bus := events.NewBus()
	bus.SubscribeAccountBlocked(func(ctx context.Context, ev events.AccountBlocked) error {
		return as.LogoutAllForUser(ctx, ev.UserID)
	})
	accounts := impl.NewAccountServiceImpl(st, bus)

	ctx := context.Background()
	go impl.NewSweeper(st, cfg.SweepInterval).Run(ctx)

	mux := httpx.NewRouter(as, ts, accounts, httpx.RouterConfig{
		CORSOrigins:    cfg.CORSOrigins,
		OtpRatePerMin:  cfg.OtpRatePerMin,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("auth service listening", "addr", srv.Addr, "issuer", cfg.Issuer)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
