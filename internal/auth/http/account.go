package http

import (
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// AccountHandler serves endpoints acting on the caller's own account.
type AccountHandler struct {
	Auth *service.AuthService
}

// HandleMe godoc
//
//	@Summary		Current user
//	@Description	Returns the identity the bearer token resolves to.
//	@Tags			Account
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/api/v1/auth/me [get].
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorCodeInvalidToken, "missing principal")
		return
	}
	httpx.NoCache(w)
	// The bearer verifier refuses inactive users, so the caller is active.
	httpx.WriteJSON(w, http.StatusOK, authsdk.UserResponse{
		ID:       p.ID,
		Fullname: p.Fullname,
		Email:    p.Email,
		Role:     p.Role,
		IsActive: true,
	})
}

// HandleChangePassword godoc
//
//	@Summary		Change password
//	@Tags			Account
//	@Accept			json
//	@Security		BearerAuth
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Old and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"validation_error"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Router			/api/v1/auth/change-password [post].
func (h *AccountHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	err := h.Auth.ChangePassword(r.Context(), httpx.UserIDFromContext(r.Context()), req.OldPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChangeFullname godoc
//
//	@Summary		Change display name
//	@Tags			Account
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.ChangeFullnameRequest	true	"New name"
//	@Success		200		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation_error"
//	@Router			/api/v1/auth/change-fullname [post].
func (h *AccountHandler) HandleChangeFullname(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangeFullnameRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	user, err := h.Auth.ChangeFullname(r.Context(), httpx.UserIDFromContext(r.Context()), req.Fullname)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}
