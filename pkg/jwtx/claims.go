package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short-lived access tokens, week-long refresh tokens;
// both can be overridden per-service via config.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// DefaultLeeway is the clock-skew tolerance applied when validating
	// exp/nbf. Seconds, not minutes.
	DefaultLeeway = 30 * time.Second
)

// Kind distinguishes the two credential types this service issues.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the claim set embedded in every signed token. Refresh tokens
// additionally carry a unique "jti" so the server can shadow them with a
// revocable record; access tokens are purely self-contained.
type Claims struct {
	jwt.RegisteredClaims

	// Kind of credential, "access" or "refresh".
	Kind Kind `json:"kind"`
}

// NewClaims builds a minimally-correct claim set for the given kind.
// jti may be empty (access tokens).
func NewClaims(kind Kind, subject, jti, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
		Kind: kind,
	}
}

// ValidateIssuer checks the iss claim against the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiryWithLeeway checks exp and nbf with a grace period for
// clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
