package authsdk

import (
	"context"
	"net/http"
)

// Register creates an account. Only available when the server runs the
// password provider.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for an access and refresh token pair.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// Refresh exchanges a refresh token for a new access token.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/refresh", RefreshRequest{
		RefreshToken: refreshToken,
	})
	if err != nil {
		return nil, err
	}

	var tokens TokenResponse
	if err := decodeJSON(resp, &tokens, http.StatusOK); err != nil {
		return nil, err
	}
	return &tokens, nil
}

// ResetPassword sets a new password for email.
func (c *SDKClient) ResetPassword(ctx context.Context, email, newPassword string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/reset-password", ResetPasswordRequest{
		Email:       email,
		NewPassword: newPassword,
	})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// FetchSignedResource follows a signed URL returned by a resource grant.
func (c *SDKClient) FetchSignedResource(ctx context.Context, signedURL string) (*ResourceResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}

	var res ResourceResponse
	if err := decodeJSON(resp, &res, http.StatusOK); err != nil {
		return nil, err
	}
	return &res, nil
}
