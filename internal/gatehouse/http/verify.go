package http

import (
	"net/http"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/service"
	"github.com/okapi-systems/gatehouse/pkg/httpx"
)

// VerifyRequestHandler serves POST /v1/auth/verify/request. It re-sends the
// verification email. The response is 202 whether or not the address maps to
// an account, so the endpoint cannot be used to probe for registered emails.
type VerifyRequestHandler struct {
	AccountService *service.AccountService
}

type emailRequest struct {
	Email string `json:"email"`
}

type acceptedResponse struct {
	Status string `json:"status"`
}

func (h *VerifyRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}

	if err := h.AccountService.RequestVerificationByEmail(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, acceptedResponse{Status: "accepted"})
}

// VerifyConfirmHandler serves POST /v1/auth/verify/confirm, redeeming the
// emailed token and flipping the account to verified.
type VerifyConfirmHandler struct {
	AccountService *service.AccountService
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *VerifyConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	if err := h.AccountService.ConfirmVerification(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, acceptedResponse{Status: "verified"})
}
