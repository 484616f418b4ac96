package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is anything that can sign Claims into a compact JWT.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions captures common expectations used by verifiers.
type VerifyOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// TokenUse the token must carry (claims.token_use). Empty means "don't care".
	TokenUse string

	// Leeway allows small clock skew when validating exp/nbf/iat.
	// Because time sync is never perfect.
	Leeway time.Duration
}

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrTokenUse    = errors.New("jwtx: token use mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")

	ErrWeakSecret = errors.New("jwtx: signing secret too short")
)

// MinSecretLength is the minimum accepted HS256 secret size in bytes.
// Anything shorter than the HMAC-SHA256 output weakens the construction.
const MinSecretLength = 32

// HS256 signs and verifies tokens with a single process-wide symmetric
// secret. The secret is fixed at construction and immutable for the process
// lifetime.
type HS256 struct {
	secret []byte
	opts   VerifyOptions
}

var (
	_ Signer   = (*HS256)(nil)
	_ Verifier = (*HS256)(nil)
)

// NewHS256 builds a combined signer/verifier from a shared secret.
func NewHS256(secret []byte, opts VerifyOptions) (*HS256, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	// Copy so a caller mutating its slice can't rotate the secret under us.
	s := make([]byte, len(secret))
	copy(s, secret)

	return &HS256{secret: s, opts: opts}, nil
}

// Sign produces a compact HS256 JWT for the given claims.
func (h *HS256) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(h.secret)
}

// Verify parses and validates a compact JWT, returning its claims. Errors
// are normalized to the jwtx sentinel set so callers can errors.Is on them.
func (h *HS256) Verify(raw string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAlgMismatch
		}
		return h.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(h.opts.Leeway),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if err := claims.ValidateIssuer(h.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTokenUse(h.opts.TokenUse); err != nil {
		return Claims{}, err
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, ErrAlgMismatch):
		return ErrAlgMismatch
	default:
		// Structural failures (bad segments, bad base64, wrong claim types)
		// all collapse to malformed.
		return ErrMalformed
	}
}
