package service

import (
	"context"

	"admin-auth/internal/domain"
)

// AccountService is the thin slice of account management this service
// hosts: toggling the blocked flag. Blocking publishes AccountBlocked,
// which the auth core answers with a full session teardown.
type AccountService interface {
	SetBlocked(ctx context.Context, userID domain.UserID, blocked bool) error
}
