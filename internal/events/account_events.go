package events

import (
	"time"

	"admin-auth/internal/domain"
)

// AccountBlocked is published by account management when an
// administrator is blocked. The auth core reacts by tearing down every
// session for the account; it never reaches into account-management
// internals directly.
type AccountBlocked struct {
	UserID domain.UserID `json:"userId"`
	At     time.Time     `json:"at"`
}
