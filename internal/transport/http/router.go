package http

import (
	"net/http"
	"time"

	"admin-auth/internal/observability/middleware"
	"admin-auth/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins    []string
	OtpRatePerMin  int
	RequestTimeout time.Duration
}

func NewRouter(auth service.AuthService, tokens service.TokenService, accounts service.AccountService, cfg RouterConfig) http.Handler {
	if cfg.OtpRatePerMin <= 0 {
		cfg.OtpRatePerMin = 5
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	h := &handler{auth: auth, tokens: tokens, accounts: accounts}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.WithRequestAndTrace)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		// Flood control on issuance only: every request mints a code and
		// runs a bcrypt hash.
		r.With(httprate.LimitByIP(cfg.OtpRatePerMin, time.Minute)).
			Post("/request-otp", h.requestOtp)
		r.Post("/verify-otp", h.verifyOtp)
		r.Post("/refresh", h.refresh)
		r.Post("/logout", h.logout)
		r.Post("/logout-all", h.logoutAll)
		r.With(h.requireAccess).Get("/sessions", h.sessions)
	})

	r.Route("/v1/accounts", func(r chi.Router) {
		r.With(h.requireAccess).Post("/block", h.blockAccount)
	})

	return r
}
