// Package auth holds the credential primitives used by the account and
// session layers: bcrypt password hashing, HS256 session tokens, and the
// GitHub OAuth2 provider.
//
// A session cookie carries a signed JWT whose subject is the opaque id of a
// server-side session row. The signature stops a client from guessing or
// forging ids; the row itself holds the identity and can be revoked.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "bookstore"

// DefaultTokenTTL matches the default session lifetime.
const DefaultTokenTTL = 24 * time.Hour

var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and verifies session tokens with a shared HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService returns a TokenService whose tokens live for ttl. A zero
// ttl means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime given to tokens by Generate.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a token for subject that expires after the configured TTL.
func (s *TokenService) Generate(subject string) (string, error) {
	return s.GenerateWithDuration(subject, s.ttl)
}

// GenerateWithDuration signs a token with an explicit lifetime. A negative
// duration produces an already-expired token, which tests rely on.
func (s *TokenService) GenerateWithDuration(subject string, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry, and returns the
// token's subject.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
