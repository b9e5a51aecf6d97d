package store

import (
	"context"
	"errors"
	"strings"

	"admin-auth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountStore struct{ db *gorm.DB }

func (s *Store) Accounts() *AccountStore { return &AccountStore{db: s.DB} }

// GetByEmail looks up an account by its lowercased, trimmed email.
func (a *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.AdminAccount, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var acc domain.AdminAccount
	if err := a.db.WithContext(ctx).First(&acc, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (a *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.AdminAccount, error) {
	var acc domain.AdminAccount
	if err := a.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &acc, nil
}

func (a *AccountStore) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	return a.db.WithContext(ctx).Model(&domain.AdminAccount{}).
		Where("id = ?", id).
		Update("blocked", blocked).Error
}
