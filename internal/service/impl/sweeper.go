package impl

import (
	"context"
	"log/slog"
	"time"

	"admin-auth/internal/observability/metrics"
	"admin-auth/internal/store"
)

// Sweeper periodically deletes expired otp and refresh token rows. The
// verify and refresh paths re-check expiry at read time, so the sweeper
// only keeps the tables small.
type Sweeper struct {
	store    *store.Store
	interval time.Duration
	now      func() time.Time
}

func NewSweeper(st *store.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    st,
		interval: interval,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	purged, err := s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}
	for table, n := range purged {
		if n > 0 {
			metrics.ExpiredRowsPurgedTotal.WithLabelValues(table).Add(float64(n))
		}
	}
	slog.Debug("expiry sweep done",
		"otp_requests", purged["otpRequests"],
		"refresh_tokens", purged["refreshTokens"],
	)
}
