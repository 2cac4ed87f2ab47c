package authsdk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// refreshSkew renews the access token this long before it actually expires.
const refreshSkew = 30 * time.Second

// Session is an authenticated session. Its methods refresh the access token
// when it has expired. The refresh token itself is never rotated by the
// server, so it is kept for the life of the session.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	user         *UserResponse
}

func newSession(client *SDKClient, tokenResp *TokenResponse) *Session {
	return &Session{
		client:       client,
		accessToken:  tokenResp.AccessToken,
		refreshToken: tokenResp.RefreshToken,
		expiresAt:    expiry(tokenResp.ExpiresIn),
		user:         tokenResp.User,
	}
}

func expiry(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn)*time.Second - refreshSkew)
}

// getValidToken returns a valid access token, refreshing it if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine may have refreshed while we waited for the lock.
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", fmt.Errorf("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.accessToken = tokenResp.AccessToken
	s.expiresAt = expiry(tokenResp.ExpiresIn)
	if tokenResp.User != nil {
		s.user = tokenResp.User
	}
	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the refresh token the session was created with.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// User returns the user returned at login, if any.
func (s *Session) User() *UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}
