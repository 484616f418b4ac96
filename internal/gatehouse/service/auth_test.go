package service

import (
	"context"
	"testing"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
	"github.com/okapi-systems/gatehouse/pkg/cryptox"

	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, "Alice", "Alice@Example.COM", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email, "email must be normalised")
	require.Equal(t, domain.AccountUnverified, user.State)
	require.NotEmpty(t, user.ID)
	require.NotEqual(t, "correct horse battery", user.PasswordHash)

	require.Equal(t, 1, env.mailer.verifySends, "registration issues a verification email")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	// Same address with different case still collides.
	_, err = env.auth.Register(ctx, "Mallory", "ALICE@example.com", "password456")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{"empty name", "", "a@example.com", "password123", ErrInvalidInput},
		{"missing at sign", "A", "not-an-email", "password123", ErrInvalidInput},
		{"missing tld", "A", "a@example", "password123", ErrInvalidInput},
		{"short password", "A", "a@example.com", "short", ErrWeakPassword},
		{"long password", "A", "a@example.com", string(make([]byte, 129)), ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(ctx, tt.userName, tt.email, tt.password)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_MailFailureIsNonFatal(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.failNext = ErrMailTransient

	user, err := env.auth.Register(context.Background(), "Alice", "alice@example.com", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	pair, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	requireValidPair(t, env.auth, pair, user.ID)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerVerified(t, "alice@example.com", "password123")

	_, err := env.auth.Login(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Login(context.Background(), "ghost@example.com", "password123")
	require.ErrorIs(t, err, ErrInvalidCredentials,
		"unknown email must be indistinguishable from wrong password")
}

func TestLogin_UnverifiedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, "Alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, "alice@example.com", "password123")
	require.ErrorIs(t, err, ErrAccountUnverified)
}

func TestLogin_LockedAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")
	require.NoError(t, env.store.Users().UpdateUserState(ctx, user.ID, domain.AccountLocked))

	_, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.ErrorIs(t, err, ErrAccountLocked)

	// Wrong password on a locked account must not reveal the lock.
	_, err = env.auth.Login(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_RejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Authenticate(context.Background(), "not.a.jwt")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")
	pair, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	next, err := env.auth.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	requireValidPair(t, env.auth, next, user.ID)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The old refresh token died in the rotation.
	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// The new one still works.
	_, err = env.auth.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)

	_, err = env.auth.Refresh(context.Background(), opaque)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.registerVerified(t, "alice@example.com", "password123")
	pair, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, env.auth.Logout(ctx, pair.RefreshToken))

	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Logging out twice is fine.
	require.NoError(t, env.auth.Logout(ctx, pair.RefreshToken))
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "old-password")
	pair, err := env.auth.Login(ctx, "alice@example.com", "old-password")
	require.NoError(t, err)

	require.NoError(t, env.auth.ChangePassword(ctx, user.ID, "old-password", "new-password"))

	// Sessions from before the change are revoked.
	_, err = env.auth.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = env.auth.Login(ctx, "alice@example.com", "old-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "alice@example.com", "new-password")
	require.NoError(t, err)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	err := env.auth.ChangePassword(ctx, user.ID, "wrong-password", "new-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Old password still works.
	_, err = env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
}

func TestChangePassword_WeakNew(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := env.registerVerified(t, "alice@example.com", "password123")

	err := env.auth.ChangePassword(ctx, user.ID, "password123", "short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestAccessToken_Expiry(t *testing.T) {
	env := newTestEnv(t)
	env.auth.AccessTTL = time.Millisecond

	ctx := context.Background()
	env.registerVerified(t, "alice@example.com", "password123")

	pair, err := env.auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = env.auth.Authenticate(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
