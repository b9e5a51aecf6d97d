package store

import (
	"context"
	"time"
)

// PurgeExpired removes otp_requests and refresh_tokens rows past their
// expiry and returns counts of removed rows per table. Expired rows that
// have not yet been purged still fail verification at read time, so this
// is housekeeping, not a correctness requirement.
func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (map[string]int64, error) {
	purged := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		n, err := tx.Otps().DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		purged["otpRequests"] = n

		n, err = tx.RefreshTokens().DeleteExpired(ctx, now)
		if err != nil {
			return err
		}
		purged["refreshTokens"] = n
		return nil
	})

	return purged, err
}
