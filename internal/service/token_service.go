package service

import "admin-auth/internal/domain"

// AccessIdentity is what a verified access token proves.
type AccessIdentity struct {
	UserID domain.UserID
	Email  string
}

type TokenService interface {
	// IssueAccess mints a signed, self-contained access token for the
	// account. Pure computation, no store access.
	IssueAccess(userID domain.UserID, email string) (string, error)
	// VerifyAccess checks signature, expiry and the type tag. Tokens
	// whose type claim is not "access" are rejected outright.
	VerifyAccess(token string) (*AccessIdentity, error)
	// NewRefreshTokenString returns a fresh opaque refresh credential.
	NewRefreshTokenString() (string, error)
}
