package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Access tokens stay short-lived because they are
// stateless and cannot be revoked before natural expiry; refresh tokens are
// opaque, stored hashed, and can be revoked at any time.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use tags carried in the token_use claim. Verifiers reject tokens
// presented for a different use than they were minted for.
const (
	UseAccess = "access"
)

// Claims are the signed access-token claims used across the service. Keep
// changes additive to preserve compatibility with tokens already in flight.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user, for display and audit purposes.
	Email string `json:"email,omitempty"`

	// TokenUse tags what the token may be used for, see UseAccess.
	TokenUse string `json:"token_use,omitempty"`
}

// NewAccessClaims builds minimally-correct access-token claims.
func NewAccessClaims(
	subject, email, issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:    email,
		TokenUse: UseAccess,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateTokenUse checks the token_use tag against the expected use.
func (c *Claims) ValidateTokenUse(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.TokenUse != expected {
		return ErrTokenUse
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
