// Package security provides bearer-token signing/verification and password
// hashing for the authenticated surfaces (location owners and admins).
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims carried by an access token. Subject holds the
// user ID; IsAdmin grants access to every location and the admin endpoints.
type Claims struct {
	IsAdmin bool `json:"admin"`
	jwt.RegisteredClaims
}

// TokenManager signs and parses HMAC-SHA256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager constructs a TokenManager. The secret must be non-empty;
// the TTL bounds the lifetime of every issued token.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("security: jwt secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Sign issues an access token for userID.
func (m *TokenManager) Sign(userID string, isAdmin bool) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token's signature, issuer, and expiry, and returns its
// claims. Any verification failure returns an error; partial claims must not
// be trusted.
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("security: unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("security: parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("security: token has no subject")
	}
	return claims, nil
}
