package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
	"github.com/okapi-systems/gatehouse/internal/gatehouse/store"
	"github.com/okapi-systems/gatehouse/pkg/cryptox"
	"github.com/okapi-systems/gatehouse/pkg/idx"
	"github.com/okapi-systems/gatehouse/pkg/slogx"
)

var (
	ErrUserNotFound     = errors.New("user_not_found")
	ErrTokenNotFound    = errors.New("token_not_found")
	ErrTokenExpired     = errors.New("token_expired")
	ErrTokenAlreadyUsed = errors.New("token_already_used")
	ErrAlreadyVerified  = errors.New("already_verified")
)

// Default action-token lifetimes. Reset links are short because they grant a
// password change to whoever holds them.
const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = 1 * time.Hour
)

// AccountService owns the single-use action tokens that drive account state:
// email verification and password reset. Only token fingerprints hit the
// store; the opaque secret goes out through the Mailer and never comes back
// except in the confirmation call.
type AccountService struct {
	Store  store.Store
	Mailer Mailer

	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// RequestVerification issues a fresh email-verification token for a user and
// mails it. Any previously issued unconsumed verification token is
// invalidated, so only the newest link works.
func (s *AccountService) RequestVerification(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.Verified() {
		return ErrAlreadyVerified
	}
	if user.Locked() {
		return ErrAccountLocked
	}

	opaque, err := s.issueActionToken(ctx, user.ID, domain.PurposeEmailVerification, s.verificationTTL())
	if err != nil {
		return err
	}

	// Delivery failure is non-fatal. The token already exists and the user
	// can request a fresh link once mail recovers.
	if err := s.Mailer.SendVerification(ctx, user, opaque); err != nil {
		l.Error("verification mail delivery failed",
			slog.String("user_id", user.ID), "error", err)
	}

	l.Info("verification token issued", slog.String("user_id", user.ID))
	return nil
}

// RequestVerificationByEmail is the enumeration-safe variant used by the
// public resend endpoint. Unknown or already-verified addresses return nil
// so the response never reveals account existence.
func (s *AccountService) RequestVerificationByEmail(ctx context.Context, email string) error {
	user, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	err = s.RequestVerification(ctx, user.ID)
	if errors.Is(err, ErrAlreadyVerified) || errors.Is(err, ErrAccountLocked) {
		return nil
	}
	return err
}

// ConfirmVerification redeems a verification token and moves the account to
// verified. Consuming the token and flipping the state commit together.
// Re-clicking an already-honoured link for a verified account reports
// ErrTokenAlreadyUsed; the account stays verified either way.
func (s *AccountService) ConfirmVerification(ctx context.Context, opaque string) error {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()
	fp := cryptox.FingerprintToken(opaque)

	var userID string

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		tok, err := s.redeemToken(ctx, tx, fp, domain.PurposeEmailVerification, now)
		if err != nil {
			return err
		}

		user, err := tx.Users().GetUserByID(ctx, tok.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		userID = user.ID

		if !user.State.CanTransition(domain.AccountVerified) {
			// Only a locked account refuses this transition.
			return ErrAccountLocked
		}
		if user.Verified() {
			// Token consumed above; nothing further to change.
			return nil
		}

		return tx.Users().UpdateUserState(ctx, user.ID, domain.AccountVerified)
	})
	if err != nil {
		return err
	}

	l.Info("email verified", slog.String("user_id", userID))
	return nil
}

// RequestPasswordReset issues a reset token for the account behind the given
// email. Like the resend endpoint it is enumeration-safe: unknown addresses
// succeed silently.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.Locked() {
		return nil
	}

	opaque, err := s.issueActionToken(ctx, user.ID, domain.PurposePasswordReset, s.resetTTL())
	if err != nil {
		return err
	}

	// Non-fatal for the same reason as verification mail, and so a mail
	// outage cannot expose which addresses exist through the status code.
	if err := s.Mailer.SendPasswordReset(ctx, user, opaque); err != nil {
		l.Error("reset mail delivery failed",
			slog.String("user_id", user.ID), "error", err)
	}

	l.Info("password reset token issued", slog.String("user_id", user.ID))
	return nil
}

// ConfirmPasswordReset redeems a reset token and sets the new password. All
// refresh tokens for the user are revoked in the same transaction so any
// session the attacker may hold dies with the old password.
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, opaque, newPassword string, policy PasswordPolicy) error {
	l := slogx.FromContext(ctx)

	if err := policy.validate(newPassword); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fp := cryptox.FingerprintToken(opaque)

	var userID string

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		tok, err := s.redeemToken(ctx, tx, fp, domain.PurposePasswordReset, now)
		if err != nil {
			return err
		}
		userID = tok.UserID

		user, err := tx.Users().GetUserByID(ctx, tok.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if user.Locked() {
			return ErrAccountLocked
		}

		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return err
		}
		return tx.RefreshTokens().RevokeAllUserRefreshTokens(ctx, user.ID)
	})
	if err != nil {
		return err
	}

	l.Info("password reset", slog.String("user_id", userID))
	return nil
}

// issueActionToken mints an opaque secret, stores its fingerprint and
// atomically supersedes any active token of the same purpose.
func (s *AccountService) issueActionToken(ctx context.Context, userID string, purpose domain.TokenPurpose, ttl time.Duration) (string, error) {
	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	tok := domain.ActionToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(opaque),
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.ActionTokens().InvalidateActiveActionTokens(ctx, userID, purpose); err != nil {
			return err
		}
		return tx.ActionTokens().CreateActionToken(ctx, tok)
	})
	if err != nil {
		return "", err
	}

	return opaque, nil
}

// redeemToken looks up a token by fingerprint and consumes it, surfacing the
// precise failure (not found vs expired vs already used) and enforcing the
// purpose binding. Must run inside the caller's transaction so the consume
// commits together with the state change it authorizes.
func (s *AccountService) redeemToken(ctx context.Context, tx store.Tx, fp string, purpose domain.TokenPurpose, now time.Time) (domain.ActionToken, error) {
	tok, err := tx.ActionTokens().GetActionTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ActionToken{}, ErrTokenNotFound
		}
		return domain.ActionToken{}, err
	}

	// Purpose mismatch reads as not-found so a verification link can't probe
	// the reset endpoint.
	if tok.Purpose != purpose {
		return domain.ActionToken{}, ErrTokenNotFound
	}
	if tok.Consumed() {
		return domain.ActionToken{}, ErrTokenAlreadyUsed
	}
	if tok.Expired(now) {
		return domain.ActionToken{}, ErrTokenExpired
	}

	if err := tx.ActionTokens().MarkActionTokenConsumed(ctx, tok.ID, now); err != nil {
		// A concurrent redeem won the race between lookup and consume.
		if errors.Is(err, store.ErrNotFound) {
			return domain.ActionToken{}, ErrTokenAlreadyUsed
		}
		return domain.ActionToken{}, err
	}

	return tok, nil
}

func (s *AccountService) verificationTTL() time.Duration {
	if s.VerificationTTL > 0 {
		return s.VerificationTTL
	}
	return DefaultVerificationTTL
}

func (s *AccountService) resetTTL() time.Duration {
	if s.ResetTTL > 0 {
		return s.ResetTTL
	}
	return DefaultResetTTL
}
