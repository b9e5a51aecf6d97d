package impl

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"admin-auth/internal/domain"
	"admin-auth/internal/jwtsigner"
	"admin-auth/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	accessTokenType = "access"
	// 64 random bytes, hex-encoded: 512 bits of entropy per refresh token.
	refreshTokenBytes = 64
)

type AccessClaims struct {
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

var _ service.TokenService = (*TokenServiceImpl)(nil)

type TokenServiceImpl struct {
	signer    *jwtsigner.Signer
	accessTTL time.Duration
}

func NewTokenServiceHS256(signer *jwtsigner.Signer, accessTTL time.Duration) *TokenServiceImpl {
	return &TokenServiceImpl{signer: signer, accessTTL: accessTTL}
}

func (t *TokenServiceImpl) IssueAccess(userID domain.UserID, email string) (string, error) {
	return t.signer.Sign(userID.String(), t.accessTTL, map[string]any{
		"email": email,
		"type":  accessTokenType,
	})
}

func (t *TokenServiceImpl) VerifyAccess(token string) (*service.AccessIdentity, error) {
	claims := &AccessClaims{}
	parsed, err := t.signer.Parser().ParseWithClaims(token, claims, t.signer.Keyfunc)
	if err != nil || !parsed.Valid {
		return nil, domain.ErrUnauthorized
	}
	// The type tag is part of the contract: anything but an access token
	// presented here is rejected, valid signature or not.
	if claims.Type != accessTokenType {
		return nil, domain.ErrUnauthorized
	}
	if claims.Issuer != t.signer.Issuer {
		return nil, domain.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	return &service.AccessIdentity{UserID: userID, Email: claims.Email}, nil
}

func (t *TokenServiceImpl) NewRefreshTokenString() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
