package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

const fileResourceType = "file"

// ResourceHandler issues resource grants and serves the resources they
// protect.
type ResourceHandler struct {
	Auth *service.AuthService
}

// HandleIssue godoc
//
//	@Summary		Grant access to a resource
//	@Description	Returns a resource-access token and an equivalent signed URL for one resource.
//	@Tags			Resources
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		authsdk.ResourceAccessRequest	true	"Resource and lifetime"
//	@Success		200		{object}	authsdk.ResourceAccessResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"validation_error"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/api/v1/auth/resource-access [post].
func (h *ResourceHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResourceAccessRequest
	if apiErr := httpx.DecodeJSON(r, &req); apiErr != nil {
		apiErr.Write(w)
		return
	}

	ttl := time.Duration(req.ExpiresIn) * time.Second
	grant, err := h.Auth.IssueResourceAccess(r.Context(),
		req.ResourceType, req.ResourceID, httpx.UserIDFromContext(r.Context()), ttl)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.ResourceAccessResponse{
		ResourceType: grant.ResourceType,
		ResourceID:   grant.ResourceID,
		AccessToken:  grant.Token,
		SignedURL:    grant.SignedURL,
		ExpiresAt:    grant.ExpiresAt.Unix(),
	})
}

// HandleFile godoc
//
//	@Summary		Fetch a file through a grant
//	@Description	Accepts either a signed URL or a resource-access token in the token query parameter.
//	@Tags			Resources
//	@Produce		json
//	@Param			id			path		string	true	"File ID"
//	@Param			token		query		string	false	"Resource-access token"
//	@Param			signature	query		string	false	"URL signature"
//	@Param			expires		query		int		false	"URL expiry (unix seconds)"
//	@Success		200			{object}	authsdk.ResourceResponse
//	@Failure		401			{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/api/v1/files/{id} [get].
func (h *ResourceHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	resp := authsdk.ResourceResponse{ResourceType: fileResourceType, ResourceID: id}

	switch token := r.URL.Query().Get("token"); {
	case token == "" && h.Auth.VerifySignedURL(r.URL.RequestURI()):
		resp.GrantedBy = "signed_url"
	case token != "":
		claims, ok := h.Auth.VerifyResourceAccess(r.Context(), token, fileResourceType, id)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorCodeInvalidToken, "invalid or expired resource token")
			return
		}
		resp.GrantedBy = "token"
		resp.UserID = claims.UserID
	default:
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorCodeInvalidToken, "invalid or expired signature")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
