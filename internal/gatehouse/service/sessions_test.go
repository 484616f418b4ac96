package service

import (
	"context"
	"testing"

	"github.com/okapi-systems/gatehouse/pkg/cryptox"
	"github.com/okapi-systems/gatehouse/pkg/idx"

	"github.com/stretchr/testify/require"
)

func TestListSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	first, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	second, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	sessions, err := env.auth.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Only metadata comes back, never the token secrets.
	for _, s := range sessions {
		require.NotEqual(t, first.RefreshToken, s.TokenHash)
		require.NotEqual(t, second.RefreshToken, s.TokenHash)
	}

	// A logged-out session drops off the list.
	require.NoError(t, env.auth.Logout(ctx, first.RefreshToken))

	sessions, err = env.auth.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestRevokeSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	keep, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	drop, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	dropRecord, err := env.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(drop.RefreshToken))
	require.NoError(t, err)

	require.NoError(t, env.auth.RevokeSession(ctx, user.ID, dropRecord.ID))

	// The revoked session cannot refresh, the other still can.
	_, err = env.auth.Refresh(ctx, drop.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = env.auth.Refresh(ctx, keep.RefreshToken)
	require.NoError(t, err)

	// Revoking it again is a miss.
	err = env.auth.RevokeSession(ctx, user.ID, dropRecord.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeSession_OtherUsersSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerVerified(t, "alice@example.com", "password123")
	mallory := env.registerVerified(t, "mallory@example.com", "password123")

	pair, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	record, err := env.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)

	// A guessed session id scoped to the wrong user is a plain miss.
	err = env.auth.RevokeSession(ctx, mallory.ID, record.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRevokeSession_Unknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	err := env.auth.RevokeSession(ctx, user.ID, idx.New().String())
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeAllSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	first, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	second, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, env.auth.RevokeAllSessions(ctx, user.ID))

	_, err = env.auth.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
	_, err = env.auth.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	sessions, err := env.auth.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Empty(t, sessions)

	// With no sessions left the bulk revoke is still a success.
	require.NoError(t, env.auth.RevokeAllSessions(ctx, user.ID))
}
