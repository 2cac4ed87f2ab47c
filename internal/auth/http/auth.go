package http

import (
	"net/http"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

// AuthHandler serves the unauthenticated credential endpoints and logout.
type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister godoc
//
//	@Summary		Register a user
//	@Description	Creates an active account with the user role. Only available with the password provider.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	authsdk.UserResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation_error or invalid_request"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/api/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	user, err := h.Auth.Register(r.Context(), req.Fullname, req.Password, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, userResponse(user))
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges credentials for an access and refresh token pair.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation_error"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_grant"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/api/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRefresh godoc
//
//	@Summary		Refresh an access token
//	@Description	Mints a new access token from a refresh token. The refresh token is not rotated.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation_error"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/api/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleLogout godoc
//
//	@Summary		Log out
//	@Description	Tokens are stateless, so logout only tells the client to drop them.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.LogoutResponse
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/api/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ok, err := h.Auth.Logout(r.Context(), httpx.TokenFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutResponse{
		Success: ok,
		Message: "Logged out. Discard the access and refresh tokens.",
	})
}

// HandleResetPassword godoc
//
//	@Summary		Reset a password
//	@Description	Sets a new password for the account with the given email. Only available with the password provider.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	authsdk.ResetPasswordRequest	true	"Email and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"validation_error or invalid_request"
//	@Failure		429	{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/api/v1/auth/reset-password [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	if err := h.Auth.ResetPassword(r.Context(), req.Email, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
