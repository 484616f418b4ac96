package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
	"github.com/okapi-systems/gatehouse/internal/gatehouse/store"
	"github.com/okapi-systems/gatehouse/pkg/slogx"
)

var ErrSessionNotFound = errors.New("session_not_found")

// ListSessions returns the caller's live sessions, one per unrevoked and
// unexpired refresh token, newest first. Only metadata leaves the store; the
// token secrets themselves are never recoverable.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	return s.Store.RefreshTokens().ListUserRefreshTokens(ctx, userID)
}

// RevokeSession kills a single session by its id, as shown in ListSessions.
// The user scope is enforced at the store so one user cannot revoke another's
// session even with a guessed id.
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID string) error {
	l := slogx.FromContext(ctx)

	err := s.Store.RefreshTokens().RevokeRefreshTokenByID(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	l.Info("session revoked",
		slog.String("user_id", userID), slog.String("session_id", sessionID))
	return nil
}

// RevokeAllSessions revokes every refresh token the user holds, including the
// one backing the current session. Access tokens stay valid until expiry.
func (s *AuthService) RevokeAllSessions(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.RefreshTokens().RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		return err
	}

	l.Info("all sessions revoked", slog.String("user_id", userID))
	return nil
}
