package store

import (
	"context"
	"errors"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrUnavailable wraps transient failures (timeouts, cancelled store
	// calls). Callers may retry with backoff.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable, and a Tx scope for multi-step operations that must be
// atomic.
type Store interface {
	Users() Users
	ActionTokens() ActionTokens
	RefreshTokens() RefreshTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction. If fn returns an
	// error the transaction is rolled back, otherwise it is committed.
	// This is the recommended way to handle transactions.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up a user by case-normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists when the email is taken; the uniqueness
	// check and insert are a single atomic operation at the database.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserState sets the account lifecycle state and bumps updated_at.
	UpdateUserState(ctx context.Context, userID string, state domain.AccountState) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
}

type ActionTokens interface {
	// CreateActionToken writes a new single-use token record
	// (token_hash is the SHA-256 fingerprint of the opaque secret).
	CreateActionToken(ctx context.Context, t domain.ActionToken) error

	// GetActionTokenByHash returns a token by fingerprint regardless of
	// consumed/expired status; callers decide which failure to surface.
	GetActionTokenByHash(ctx context.Context, hash string) (domain.ActionToken, error)

	// MarkActionTokenConsumed stamps consumed_at (transaction-friendly).
	MarkActionTokenConsumed(ctx context.Context, id string, at time.Time) error

	// InvalidateActiveActionTokens removes all unconsumed tokens of the
	// given purpose for a user. Pair with CreateActionToken inside a Tx to
	// keep "at most one active token per purpose" under concurrent issuance.
	InvalidateActiveActionTokens(ctx context.Context, userID string, purpose domain.TokenPurpose) error

	// DeleteExpiredActionTokens is housekeeping.
	DeleteExpiredActionTokens(ctx context.Context) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1 on a live token, sets updated_at.
	// Returns ErrNotFound when the token is already revoked or unknown, so
	// racing revocations resolve to a single winner.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeRefreshTokenByID revokes one of the user's live tokens by row id.
	// The user scope is part of the match; other users' ids are ErrNotFound.
	RevokeRefreshTokenByID(ctx context.Context, userID, id string) error

	// ListUserRefreshTokens returns the user's live sessions (unrevoked,
	// unexpired), newest first.
	ListUserRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	// RevokeAllUserRefreshTokens bulk revocation for a user (e.g., password reset).
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}
