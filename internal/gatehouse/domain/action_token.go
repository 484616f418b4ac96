package domain

import "time"

// TokenPurpose scopes an action token to the single state transition it may
// drive. A token minted for one purpose can never be redeemed for another.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email_verification"
	PurposePasswordReset     TokenPurpose = "password_reset"
)

func (p TokenPurpose) String() string { return string(p) }

// ActionToken is a single-use, time-bounded grant tied to one user and one
// purpose. Only the SHA-256 fingerprint of the opaque secret is stored; the
// raw secret exists solely in the link mailed to the user.
type ActionToken struct {
	ID         string
	UserID     string
	TokenHash  string
	Purpose    TokenPurpose
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

func (t ActionToken) Consumed() bool { return t.ConsumedAt != nil }

func (t ActionToken) Expired(now time.Time) bool { return now.After(t.ExpiresAt) }
