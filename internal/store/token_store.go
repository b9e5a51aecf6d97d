package store

import (
	"context"
	"errors"
	"time"

	"admin-auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RefreshTokenStore struct{ db *gorm.DB }

func (s *Store) RefreshTokens() *RefreshTokenStore { return &RefreshTokenStore{db: s.DB} }

func (r *RefreshTokenStore) Create(ctx context.Context, t *domain.RefreshToken) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// GetActiveByToken finds a non-expired row by exact token match.
func (r *RefreshTokenStore) GetActiveByToken(ctx context.Context, token string, now time.Time) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ExtendExpiry pushes the sliding window forward for one row.
func (r *RefreshTokenStore) ExtendExpiry(ctx context.Context, id uuid.UUID, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("id = ?", id).
		Update("expires_at", until).Error
}

// DeleteByToken is idempotent: deleting an absent token is not an error.
func (r *RefreshTokenStore) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&domain.RefreshToken{}).Error
}

func (r *RefreshTokenStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.RefreshToken{})
	return tx.RowsAffected, tx.Error
}

// DeleteOtherDevices removes every session for the user except the one on
// keepDeviceID. Rows with no device id count as "other": leaving them
// would re-trigger the single-device conflict on the next login.
func (r *RefreshTokenStore) DeleteOtherDevices(ctx context.Context, userID domain.UserID, keepDeviceID string) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ? AND (device_id IS NULL OR device_id <> ?)", userID, keepDeviceID).
		Delete(&domain.RefreshToken{})
	return tx.RowsAffected, tx.Error
}

// ListActiveForUser returns the non-expired sessions, newest first.
func (r *RefreshTokenStore) ListActiveForUser(ctx context.Context, userID domain.UserID, now time.Time) ([]domain.SessionInfo, error) {
	var rows []domain.RefreshToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expires_at > ?", userID, now).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.SessionInfo, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, domain.SessionInfo{
			DeviceID:   row.DeviceID,
			DeviceInfo: row.DeviceInfo,
			IPAddress:  row.IPAddress,
			CreatedAt:  row.CreatedAt,
		})
	}
	return sessions, nil
}

// HasActiveForUser reports whether any non-expired session exists, scoped
// to one device when deviceID is non-nil.
func (r *RefreshTokenStore) HasActiveForUser(ctx context.Context, userID domain.UserID, deviceID *string, now time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&domain.RefreshToken{}).
		Where("user_id = ? AND expires_at > ?", userID, now)
	if deviceID != nil {
		q = q.Where("device_id = ?", *deviceID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RefreshTokenStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.RefreshToken{})
	return tx.RowsAffected, tx.Error
}
