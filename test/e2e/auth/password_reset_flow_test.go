package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordResetFlow(t *testing.T) {
	srv := setupServer(t)
	registerAndVerify(t, srv, "alice@example.com")
	_, refresh := login(t, srv, "alice@example.com", testPassword)

	// 1. Request a reset link
	resp, _ := postJSON(t, srv.URL+"/v1/auth/password/forgot", map[string]string{
		"email": "alice@example.com",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	token := srv.mailer.passwordReset
	require.NotEmpty(t, token)

	// 2. Redeem it with a new password
	resp, _ = postJSON(t, srv.URL+"/v1/auth/password/reset", map[string]string{
		"token":        token,
		"new_password": "Fresh-password-1",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 3. Old password is dead
	resp, _ = postJSON(t, srv.URL+"/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 4. Sessions from before the reset are revoked
	resp, _ = postJSON(t, srv.URL+"/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 5. New password works
	login(t, srv, "alice@example.com", "Fresh-password-1")

	// 6. Reset link is single use
	resp, body := postJSON(t, srv.URL+"/v1/auth/password/reset", map[string]string{
		"token":        token,
		"new_password": "Another-password-2",
	}, "")
	require.Equal(t, http.StatusGone, resp.StatusCode)
	require.Equal(t, "token_already_used", body["error"])
}

func TestPasswordForgotUnknownEmail(t *testing.T) {
	srv := setupServer(t)

	// Indistinguishable 202 for addresses that don't exist.
	resp, _ := postJSON(t, srv.URL+"/v1/auth/password/forgot", map[string]string{
		"email": "ghost@example.com",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Empty(t, srv.mailer.passwordReset)
}

func TestPasswordChangeFlow(t *testing.T) {
	srv := setupServer(t)
	registerAndVerify(t, srv, "alice@example.com")
	access, refresh := login(t, srv, "alice@example.com", testPassword)

	// Requires authentication
	resp, _ := postJSON(t, srv.URL+"/v1/auth/password/change", map[string]string{
		"current_password": testPassword,
		"new_password":     "Changed-password-1",
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Requires the current password even with a valid session
	resp, _ = postJSON(t, srv.URL+"/v1/auth/password/change", map[string]string{
		"current_password": "wrong-current",
		"new_password":     "Changed-password-1",
	}, access)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Happy path
	resp, _ = postJSON(t, srv.URL+"/v1/auth/password/change", map[string]string{
		"current_password": testPassword,
		"new_password":     "Changed-password-1",
	}, access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Existing refresh tokens are revoked by the change
	resp, _ = postJSON(t, srv.URL+"/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	login(t, srv, "alice@example.com", "Changed-password-1")
}

func TestPasswordResetGarbageToken(t *testing.T) {
	srv := setupServer(t)

	resp, body := postJSON(t, srv.URL+"/v1/auth/password/reset", map[string]string{
		"token":        "not-a-real-token",
		"new_password": "Whatever-password-1",
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_token", body["error"])
}
