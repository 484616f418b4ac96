package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/domain"
	httpapi "github.com/okapi-systems/gatehouse/internal/gatehouse/http"
	"github.com/okapi-systems/gatehouse/internal/gatehouse/service"
	"github.com/okapi-systems/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/okapi-systems/gatehouse/pkg/cryptox"
	"github.com/okapi-systems/gatehouse/pkg/httpx"
	"github.com/okapi-systems/gatehouse/pkg/jwtx"
	"github.com/okapi-systems/gatehouse/pkg/slogx"

	"github.com/stretchr/testify/require"
)

/*
 * End-to-end tests run the full HTTP stack (router, middleware, services,
 * sqlite store) in-process against an httptest server. The only fake is the
 * mailer, which captures the action tokens that would have been emailed.
 */

const (
	testIssuer        = "gatehouse-e2e"
	testSigningSecret = "e2e-signing-secret-0123456789abcdef"
	testPassword      = "Sup3rSecret!pass"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "gatehouse-e2e-pepper")
	cryptox.SetPepperPath(pepperPath)
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	// Raise the rate limits so rapid-fire test requests don't trip the
	// brute-force protection meant for production traffic.
	relaxed := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	httpx.StrictLimit = relaxed
	httpx.ModerateLimit = relaxed
	httpx.LenientLimit = relaxed

	os.Exit(m.Run())
}

// captureMailer records the most recent action tokens per kind.
type captureMailer struct {
	verification  string
	passwordReset string
}

func (m *captureMailer) SendVerification(ctx context.Context, user domain.User, token string) error {
	m.verification = token
	return nil
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, user domain.User, token string) error {
	m.passwordReset = token
	return nil
}

type testServer struct {
	*httptest.Server
	mailer *captureMailer
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "gatehouse_e2e.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewHS256([]byte(testSigningSecret), jwtx.VerifyOptions{
		Issuer:   testIssuer,
		TokenUse: jwtx.UseAccess,
	})
	require.NoError(t, err)

	mailer := &captureMailer{}
	accounts := &service.AccountService{Store: st, Mailer: mailer}
	auth := &service.AuthService{
		Store:    st,
		Signer:   codec,
		Verifier: codec,
		Issuer:   testIssuer,
		Accounts: accounts,
	}

	logger := slogx.New(slogx.Config{
		Service: "gatehouse",
		Version: "e2e",
		Env:     "test",
		Level:   "error",
		Format:  "text",
	})

	router := httpapi.NewRouter(codec, "e2e", st, logger)
	router.AuthService = auth
	router.AccountService = accounts
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, mailer: mailer}
}

// postJSON issues a JSON POST and returns the response with its decoded body.
func postJSON(t *testing.T, url string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, url, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if len(raw) == 0 {
		return nil
	}

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// registerAndVerify walks a user through signup and email verification,
// returning nothing; follow with a login to get tokens.
func registerAndVerify(t *testing.T, srv *testServer, email string) {
	t.Helper()

	resp, body := postJSON(t, srv.URL+"/v1/auth/register", map[string]string{
		"name":     "E2E User",
		"email":    email,
		"password": testPassword,
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, "register: %v", body)
	require.NotEmpty(t, srv.mailer.verification)

	resp, body = postJSON(t, srv.URL+"/v1/auth/verify/confirm", map[string]string{
		"token": srv.mailer.verification,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "verify: %v", body)
}

// login returns the access and refresh tokens for a verified user.
func login(t *testing.T, srv *testServer, email, password string) (string, string) {
	t.Helper()

	resp, body := postJSON(t, srv.URL+"/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, "login: %v", body)

	access, _ := body["access_token"].(string)
	refresh, _ := body["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}
