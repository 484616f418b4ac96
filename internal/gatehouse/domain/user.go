package domain

import "time"

// AccountState tracks where a user sits in the account lifecycle.
type AccountState string

const (
	AccountUnverified AccountState = "unverified"
	AccountVerified   AccountState = "verified"
	AccountLocked     AccountState = "locked"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// move. Same-state moves are allowed so duplicate verification link clicks
// stay idempotent no-ops instead of surfacing errors.
func (s AccountState) CanTransition(next AccountState) bool {
	if s == next {
		return true
	}
	switch {
	case s == AccountUnverified && next == AccountVerified:
		return true
	case next == AccountLocked:
		// Administrative lock is reachable from any state.
		return true
	}
	return false
}

func (s AccountState) String() string { return string(s) }

type User struct {
	ID           string
	Name         string
	Email        string // case-normalised, unique
	PasswordHash string // argon2 encoded, never the plaintext
	State        AccountState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) Verified() bool { return u.State == AccountVerified }
func (u User) Locked() bool   { return u.State == AccountLocked }
