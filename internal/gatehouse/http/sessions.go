package http

import (
	"net/http"
	"time"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/service"
	"github.com/okapi-systems/gatehouse/pkg/httpx"
)

// SessionsListHandler serves GET /v1/auth/sessions: the caller's live
// sessions, one per active refresh token. Only metadata goes out; the id is
// an opaque handle for the revoke endpoints, not the token itself.
type SessionsListHandler struct {
	AuthService *service.AuthService
}

type sessionInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionsResponse struct {
	Sessions []sessionInfo `json:"sessions"`
}

func (h *SessionsListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	sessions, err := h.AuthService.ListSessions(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := sessionsResponse{Sessions: make([]sessionInfo, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, sessionInfo{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// SessionRevokeHandler serves DELETE /v1/auth/sessions/{id}. Revoking the
// session behind the caller's own refresh token is allowed; the access token
// keeps working until it expires.
type SessionRevokeHandler struct {
	AuthService *service.AuthService
}

func (h *SessionRevokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	sessionID := r.PathValue("id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}

	if err := h.AuthService.RevokeSession(r.Context(), userID, sessionID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SessionsRevokeAllHandler serves DELETE /v1/auth/sessions, a panic button
// that kills every session the caller holds.
type SessionsRevokeAllHandler struct {
	AuthService *service.AuthService
}

func (h *SessionsRevokeAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	if err := h.AuthService.RevokeAllSessions(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
