package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
	"github.com/okapi-systems/gatehouse/internal/gatehouse/store"
	"github.com/okapi-systems/gatehouse/pkg/cryptox"
	"github.com/okapi-systems/gatehouse/pkg/idx"
	"github.com/okapi-systems/gatehouse/pkg/jwtx"
	"github.com/okapi-systems/gatehouse/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountUnverified  = errors.New("account_unverified")
	ErrAccountLocked      = errors.New("account_locked")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidInput       = errors.New("invalid_input")
	ErrWeakPassword       = errors.New("weak_password")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
)

// emailPattern is deliberately loose. Real validation happens when the
// verification email lands; this only rejects obvious garbage.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PasswordPolicy bounds accepted password lengths. The upper bound caps
// argon2 work per hash attempt.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy is applied when the zero value is configured.
var DefaultPasswordPolicy = PasswordPolicy{MinLength: 8, MaxLength: 128}

func (p PasswordPolicy) validate(password string) error {
	min, max := p.MinLength, p.MaxLength
	if min <= 0 {
		min = DefaultPasswordPolicy.MinLength
	}
	if max <= 0 {
		max = DefaultPasswordPolicy.MaxLength
	}
	if len(password) < min || len(password) > max {
		return ErrWeakPassword
	}
	return nil
}

// AuthService owns credential lifecycle and session issuance: register,
// login, stateless access-token verification, refresh rotation, logout and
// password change.
type AuthService struct {
	Store    store.Store
	Signer   jwtx.Signer
	Verifier jwtx.Verifier

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Policy     PasswordPolicy

	// Accounts drives the verification-token side of registration. Optional;
	// when nil no verification email is issued on register.
	Accounts *AccountService
}

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new unverified account and, when an AccountService is
// wired, issues the initial verification email. Mail failure does not fail
// registration; the user can request a fresh link.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	// 1. Validate inputs before touching the store
	if name == "" || !emailPattern.MatchString(email) {
		return domain.User{}, ErrInvalidInput
	}
	if err := s.Policy.validate(password); err != nil {
		return domain.User{}, err
	}

	// 2. Hash the password (argon2id + pepper)
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		State:        domain.AccountUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. Insert; the unique index on email is the authoritative duplicate
	// check, so there is no race against a concurrent register
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}

	l.Info("user registered", slog.String("user_id", user.ID))

	// 4. Kick off email verification, best effort
	if s.Accounts != nil {
		if err := s.Accounts.RequestVerification(ctx, user.ID); err != nil {
			l.Warn("initial verification email failed",
				slog.String("user_id", user.ID), "error", err)
		}
	}

	return user, nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password produce the same error so the endpoint does not leak which
// addresses exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = NormalizeEmail(email)

	// 1. Load the user
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a hash verification anyway so the response time does not
			// reveal whether the account exists.
			_ = cryptox.VerifyPassword(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Check the password before the account state so a wrong password on
	// a locked account still reads as invalid_credentials
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	// 3. Gate on account lifecycle state
	switch user.State {
	case domain.AccountLocked:
		return nil, ErrAccountLocked
	case domain.AccountUnverified:
		return nil, ErrAccountUnverified
	}

	// 4. Issue the pair
	pair, err := s.issuePair(ctx, user, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	l.Info("user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Authenticate validates a bearer access token and returns its claims. This
// is stateless: no store round trip, so revocation only bites at refresh.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (jwtx.Claims, error) {
	claims, err := s.Verifier.Verify(accessToken)
	if err != nil {
		return jwtx.Claims{}, ErrUnauthenticated
	}
	if err := claims.ValidateTokenUse(jwtx.UseAccess); err != nil {
		return jwtx.Claims{}, ErrUnauthenticated
	}
	return claims, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued in one transaction. A revoked or expired token fails with
// ErrInvalidRefresh.
func (s *AuthService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()
	fp := cryptox.FingerprintToken(refreshOpaque)

	// 1. Look up the stored record by fingerprint
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if rt.Revoked || now.After(rt.ExpiresAt) {
		return nil, ErrInvalidRefresh
	}

	// 2. The user must still be in a loginable state
	user, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}
	if user.Locked() {
		return nil, ErrAccountLocked
	}

	// 3. Sign the new access token
	accessToken, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	// 4. Rotate: revoke old, create new, atomically
	newOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	newRT := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(newOpaque),
		ExpiresAt: now.Add(s.refreshTTL()),
		Revoked:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Revocation only matches a live row, so when two rotations race on
		// the same token exactly one commits a successor pair.
		if err := tx.RefreshTokens().RevokeRefreshToken(ctx, fp); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, newRT)
	}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, err
	}

	l.Debug("refresh token rotated", slog.String("user_id", user.ID))

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

// Logout revokes the presented refresh token. Idempotent: revoking a token
// that is already gone succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshOpaque string) error {
	fp := cryptox.FingerprintToken(refreshOpaque)
	err := s.Store.RefreshTokens().RevokeRefreshToken(ctx, fp)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// ChangePassword verifies the current password, swaps in the new hash and
// revokes every refresh token for the user so stolen sessions die with the
// old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	l := slogx.FromContext(ctx)

	if err := s.Policy.validate(newPassword); err != nil {
		return err
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID)
	}); err != nil {
		return err
	}

	l.Info("password changed", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) issuePair(ctx context.Context, user domain.User, now time.Time) (*domain.TokenPair, error) {
	accessToken, err := s.signAccess(user, now)
	if err != nil {
		return nil, err
	}

	refreshOpaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refreshOpaque),
		ExpiresAt: now.Add(s.refreshTTL()),
		Revoked:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Store.RefreshTokens().CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshOpaque,
		TokenType:    "Bearer",
		ExpiresIn:    s.accessTTL(),
	}, nil
}

func (s *AuthService) signAccess(user domain.User, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(user.ID, user.Email, s.Issuer, s.accessTTL(), now)
	return s.Signer.Sign(claims)
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.RefreshTTL > 0 {
		return s.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

// dummyHash is a throwaway argon2id hash verified on unknown-email logins to
// keep the failure path timing close to the known-email path.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
