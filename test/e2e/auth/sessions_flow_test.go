package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func deleteJSON(t *testing.T, url, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp, decodeBody(t, resp)
}

func listSessions(t *testing.T, srv *testServer, access string) []map[string]any {
	t.Helper()

	resp, body := getJSON(t, srv.URL+"/v1/auth/sessions", access)
	require.Equal(t, http.StatusOK, resp.StatusCode, "sessions: %v", body)

	raw, ok := body["sessions"].([]any)
	require.True(t, ok, "sessions: %v", body)

	out := make([]map[string]any, 0, len(raw))
	for _, s := range raw {
		entry, ok := s.(map[string]any)
		require.True(t, ok)
		out = append(out, entry)
	}
	return out
}

func TestSessionListAndRevoke(t *testing.T) {
	srv := setupServer(t)
	email := "sessions@example.com"

	registerAndVerify(t, srv, email)
	access, _ := login(t, srv, email, testPassword)
	_, otherRefresh := login(t, srv, email, testPassword)

	sessions := listSessions(t, srv, access)
	require.Len(t, sessions, 2)
	for _, s := range sessions {
		require.NotEmpty(t, s["id"])
		require.NotEmpty(t, s["created_at"])
		require.NotEmpty(t, s["expires_at"])
	}

	// Revoke one session and confirm its refresh token is dead while the
	// list shrinks to the survivor.
	id, _ := sessions[0]["id"].(string)
	require.NotEmpty(t, id)

	resp, _ := deleteJSON(t, srv.URL+"/v1/auth/sessions/"+id, access)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	sessions = listSessions(t, srv, access)
	require.Len(t, sessions, 1)

	// A second revoke of the same id is a 404.
	resp, body := deleteJSON(t, srv.URL+"/v1/auth/sessions/"+id, access)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "session_not_found", body["error"])

	// Revoking everything kills the remaining refresh token too.
	resp, _ = deleteJSON(t, srv.URL+"/v1/auth/sessions", access)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Empty(t, listSessions(t, srv, access))

	resp, body = postJSON(t, srv.URL+"/v1/auth/refresh", map[string]string{
		"refresh_token": otherRefresh,
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "refresh: %v", body)
}

func TestSessionEndpointsRequireAuth(t *testing.T) {
	srv := setupServer(t)

	resp, _ := getJSON(t, srv.URL+"/v1/auth/sessions", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = deleteJSON(t, srv.URL+"/v1/auth/sessions", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
