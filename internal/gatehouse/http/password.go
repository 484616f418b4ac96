package http

import (
	"net/http"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/service"
	"github.com/okapi-systems/gatehouse/pkg/httpx"
)

// PasswordForgotHandler serves POST /v1/auth/password/forgot. Enumeration
// safe: unknown addresses get the same 202 as known ones.
type PasswordForgotHandler struct {
	AccountService *service.AccountService
}

func (h *PasswordForgotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.AccountService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// PasswordResetHandler serves POST /v1/auth/password/reset, redeeming the
// emailed token and setting the new password.
type PasswordResetHandler struct {
	AccountService *service.AccountService
	Policy         service.PasswordPolicy
}

type passwordResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *PasswordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token and new_password are required")
		return
	}

	if err := h.AccountService.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword, h.Policy); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, acceptedResponse{Status: "password_reset"})
}

// PasswordChangeHandler serves POST /v1/auth/password/change for an
// authenticated user. Requires the current password even with a valid
// session, in case the session is a stolen one.
type PasswordChangeHandler struct {
	AuthService *service.AuthService
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *PasswordChangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	var req passwordChangeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "current_password and new_password are required")
		return
	}

	if err := h.AuthService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, acceptedResponse{Status: "password_changed"})
}
