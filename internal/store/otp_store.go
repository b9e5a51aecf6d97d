package store

import (
	"context"
	"errors"
	"time"

	"admin-auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OtpStore struct{ db *gorm.DB }

func (s *Store) Otps() *OtpStore { return &OtpStore{db: s.DB} }

func (o *OtpStore) Create(ctx context.Context, req *domain.OtpRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	return o.db.WithContext(ctx).Create(req).Error
}

// LatestByEmail returns the newest request for the email. Older rows are
// never consulted by the verify path.
func (o *OtpStore) LatestByEmail(ctx context.Context, email string) (*domain.OtpRequest, error) {
	var req domain.OtpRequest
	err := o.db.WithContext(ctx).
		Where("email = ?", email).
		Order("created_at DESC").
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &req, nil
}

// Consume flips the consumed flag with a single conditional update. The
// consumed = false guard makes concurrent verifies race safely: exactly
// one caller wins, the rest get ErrRecordNotFound.
func (o *OtpStore) Consume(ctx context.Context, id domain.OtpRequestID) error {
	tx := o.db.WithContext(ctx).
		Model(&domain.OtpRequest{}).
		Where("id = ? AND consumed = ?", id, false).
		Update("consumed", true)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteOlderForEmail removes every request for the email created before
// the given row, so at most one live code exists per email.
func (o *OtpStore) DeleteOlderForEmail(ctx context.Context, email string, keep domain.OtpRequestID) error {
	return o.db.WithContext(ctx).
		Where("email = ? AND id <> ?", email, keep).
		Delete(&domain.OtpRequest{}).Error
}

func (o *OtpStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := o.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.OtpRequest{})
	return tx.RowsAffected, tx.Error
}
