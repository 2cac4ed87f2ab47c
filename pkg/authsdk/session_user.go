package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/v1/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout tells the server the session is over. Tokens are stateless, so
// they stay valid until they expire; the session forgets them locally.
func (s *Session) Logout(ctx context.Context) (*LogoutResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/auth/logout", nil)
	if err != nil {
		return nil, err
	}

	var out LogoutResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accessToken, s.refreshToken = "", ""
	s.mu.Unlock()
	return &out, nil
}

func (s *Session) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/auth/change-password", ChangePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) ChangeFullname(ctx context.Context, fullname string) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/auth/change-fullname", ChangeFullnameRequest{
		Fullname: fullname,
	})
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser looks up any user. Requires the admin role.
func (s *Session) GetUser(ctx context.Context, userID string) (*UserResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/api/v1/auth/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

// ActivateUser requires the admin role.
func (s *Session) ActivateUser(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, "activate")
}

// DeactivateUser requires the admin role.
func (s *Session) DeactivateUser(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, "deactivate")
}

func (s *Session) setActive(ctx context.Context, userID, action string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/auth/users/"+url.PathEscape(userID)+"/"+action, nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RequestResourceAccess asks for a token and signed URL for one resource.
func (s *Session) RequestResourceAccess(ctx context.Context, req ResourceAccessRequest) (*ResourceAccessResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/api/v1/auth/resource-access", req)
	if err != nil {
		return nil, err
	}

	var out ResourceAccessResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
