package impl

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"admin-auth/internal/domain"
	"admin-auth/internal/events"
	"admin-auth/internal/service"
	"admin-auth/internal/store"
)

var _ service.AccountService = (*AccountServiceImpl)(nil)

type AccountServiceImpl struct {
	store *store.Store
	bus   *events.Bus
	now   func() time.Time
}

func NewAccountServiceImpl(st *store.Store, bus *events.Bus) *AccountServiceImpl {
	return &AccountServiceImpl{
		store: st,
		bus:   bus,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SetBlocked flips the blocked flag. Blocking publishes AccountBlocked
// synchronously, so every outstanding session is gone by the time this
// returns.
func (a *AccountServiceImpl) SetBlocked(ctx context.Context, userID domain.UserID, blocked bool) error {
	if _, err := a.store.Accounts().GetByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if err := a.store.Accounts().SetBlocked(ctx, userID, blocked); err != nil {
		return err
	}
	if blocked {
		a.bus.PublishAccountBlocked(ctx, events.AccountBlocked{UserID: userID, At: a.now()})
	}
	slog.Info("account block flag updated", "user_id", userID, "blocked", blocked)
	return nil
}
