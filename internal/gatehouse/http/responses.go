package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/service"
	"github.com/okapi-systems/gatehouse/internal/gatehouse/store"
	"github.com/okapi-systems/gatehouse/pkg/httpx"
	"github.com/okapi-systems/gatehouse/pkg/slogx"
)

// maxBodyBytes caps request bodies. Auth payloads are tiny; anything bigger
// is a mistake or an attack.
const maxBodyBytes = 64 << 10

// ErrorResponse is the JSON error body for every failure on this API.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeError(w http.ResponseWriter, code int, err, desc string) {
	httpx.WriteJSON(w, code, ErrorResponse{Error: err, ErrorDescription: desc})
}

// decodeJSON parses a JSON request body into dst. On failure it writes a 400
// and returns false; the handler should just return.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "invalid_content_type",
			"expected application/json")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return false
	}
	return true
}

// writeServiceError maps service sentinels onto HTTP statuses. Anything not
// in the table is an internal error and logged, not leaked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", "missing or malformed fields")
	case errors.Is(err, service.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, "weak_password", "password does not meet the length policy")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
	case errors.Is(err, service.ErrInvalidRefresh):
		writeError(w, http.StatusUnauthorized, "invalid_refresh_token", "")
	case errors.Is(err, service.ErrAccountUnverified):
		writeError(w, http.StatusForbidden, "account_unverified", "verify your email before logging in")
	case errors.Is(err, service.ErrAccountLocked):
		writeError(w, http.StatusForbidden, "account_locked", "")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", "")
	case errors.Is(err, service.ErrAlreadyVerified):
		writeError(w, http.StatusConflict, "already_verified", "")
	case errors.Is(err, service.ErrTokenNotFound):
		writeError(w, http.StatusBadRequest, "invalid_token", "token is unknown or superseded")
	case errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusGone, "token_expired", "request a fresh link")
	case errors.Is(err, service.ErrTokenAlreadyUsed):
		writeError(w, http.StatusGone, "token_already_used", "")
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", "")
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "")
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "try again shortly")
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}
