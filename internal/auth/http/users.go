package http

import (
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// UsersHandler serves the admin user management endpoints.
type UsersHandler struct {
	Auth *service.AuthService
}

// HandleGet godoc
//
//	@Summary		Get a user
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.UserResponse
//	@Failure		403	{object}	authsdk.ErrorResponse	"access_denied"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/api/v1/auth/users/{id} [get].
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.Auth.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, userResponse(user))
}

// HandleActivate godoc
//
//	@Summary		Activate a user
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		403	{object}	authsdk.ErrorResponse	"access_denied"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/api/v1/auth/users/{id}/activate [post].
func (h *UsersHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Activate(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeactivate godoc
//
//	@Summary		Deactivate a user
//	@Description	Outstanding tokens of the user stop working immediately.
//	@Tags			Users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204
//	@Failure		403	{object}	authsdk.ErrorResponse	"access_denied"
//	@Failure		404	{object}	authsdk.ErrorResponse	"not_found"
//	@Router			/api/v1/auth/users/{id}/deactivate [post].
func (h *UsersHandler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Deactivate(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
