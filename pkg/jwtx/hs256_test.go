package jwtx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCodec(t *testing.T, opts VerifyOptions) *HS256 {
	t.Helper()

	codec, err := NewHS256(testSecret, opts)
	require.NoError(t, err)
	return codec
}

func TestNewHS256_RejectsWeakSecret(t *testing.T) {
	_, err := NewHS256([]byte("short"), VerifyOptions{})
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestSignAndVerify(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{Issuer: "gatehouse", TokenUse: UseAccess})

	claims := NewAccessClaims("user-1", "a@x.com", "gatehouse", time.Minute, time.Now())
	raw, err := codec.Sign(claims)
	require.NoError(t, err)
	require.Equal(t, 3, len(strings.Split(raw, ".")), "compact JWT has three segments")

	got, err := codec.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "a@x.com", got.Email)
	require.Equal(t, UseAccess, got.TokenUse)
}

func TestVerify_Expired(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{})

	claims := NewAccessClaims("user-1", "a@x.com", "gatehouse", time.Minute, time.Now().Add(-time.Hour))
	raw, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_TamperedSignature(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{})

	claims := NewAccessClaims("user-1", "a@x.com", "gatehouse", time.Minute, time.Now())
	raw, err := codec.Sign(claims)
	require.NoError(t, err)

	// Flip a character in the signature segment
	tampered := raw[:len(raw)-2] + "xx"
	_, err = codec.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerify_WrongSecret(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{})
	other, err := NewHS256([]byte("ffffffffffffffffffffffffffffffff"), VerifyOptions{})
	require.NoError(t, err)

	claims := NewAccessClaims("user-1", "a@x.com", "gatehouse", time.Minute, time.Now())
	raw, err := other.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidSig)
}

func TestVerify_Malformed(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{})

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c.d", "!!!.@@@.###"} {
		_, err := codec.Verify(raw)
		require.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerify_IssuerMismatch(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{Issuer: "gatehouse"})

	claims := NewAccessClaims("user-1", "a@x.com", "someone-else", time.Minute, time.Now())
	raw, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrIssuer)
}

func TestVerify_TokenUseMismatch(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{TokenUse: UseAccess})

	claims := NewAccessClaims("user-1", "a@x.com", "gatehouse", time.Minute, time.Now())
	claims.TokenUse = "refresh"
	raw, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.ErrorIs(t, err, ErrTokenUse)
}

func TestVerify_LeewayAllowsSkew(t *testing.T) {
	codec := newTestCodec(t, VerifyOptions{Leeway: 2 * time.Minute})

	// Expired a minute ago, inside leeway
	claims := NewAccessClaims("user-1", "a@x.com", "gatehouse", time.Minute, time.Now().Add(-2*time.Minute))
	raw, err := codec.Sign(claims)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	require.NoError(t, err)
}
