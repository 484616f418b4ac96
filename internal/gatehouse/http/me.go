package http

import (
	"net/http"

	"github.com/okapi-systems/gatehouse/internal/gatehouse/service"
	"github.com/okapi-systems/gatehouse/pkg/httpx"
)

// MeHandler serves GET /v1/auth/me, returning the profile behind the bearer
// token. This hits the store, so a user deleted after token issue is caught
// here even though token verification alone would still pass.
type MeHandler struct {
	UserService *service.UserService
}

type meResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	State string `json:"state"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromCtx(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "")
		return
	}

	user, err := h.UserService.GetUserByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		State: user.State.String(),
	})
}
