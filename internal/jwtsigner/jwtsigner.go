package jwtsigner

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLen = 32

// Signer holds the process-wide HS256 secret for issuing and verifying
// access tokens. It is constructed once at startup and injected into the
// token service; business logic never reads the secret from the
// environment ad hoc.
type Signer struct {
	secret []byte
	Issuer string
}

// New creates a signer from the configured secret. A missing or short
// secret is a configuration error: the service must refuse to start
// rather than mint guessable tokens.
func New(secret, issuer string) (*Signer, error) {
	if len(secret) < minSecretLen {
		return nil, errors.New("signing secret missing or shorter than 32 bytes")
	}
	return &Signer{secret: []byte(secret), Issuer: issuer}, nil
}

// Sign issues an HS256 JWT for subject `sub` with TTL and extra claims.
func (s *Signer) Sign(sub string, ttl time.Duration, claims map[string]any) (string, error) {
	now := time.Now().UTC()
	m := jwt.MapClaims{}
	for k, v := range claims {
		m[k] = v
	}
	m["iss"] = s.Issuer
	m["sub"] = sub
	m["iat"] = jwt.NewNumericDate(now)
	m["exp"] = jwt.NewNumericDate(now.Add(ttl))

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, m)
	return t.SignedString(s.secret)
}

// Parser returns a jwt parser locked to HS256.
func (s *Signer) Parser() *jwt.Parser {
	return jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
}

// Keyfunc is the verification callback for jwt parsing.
func (s *Signer) Keyfunc(*jwt.Token) (interface{}, error) { return s.secret, nil }
