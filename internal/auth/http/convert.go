package http

import (
	"context"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/authsdk"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
)

func userResponse(u *domain.User) *authsdk.UserResponse {
	resp := &authsdk.UserResponse{
		ID:          u.ID,
		Fullname:    u.Fullname,
		Email:       u.Email,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func tokenResponse(pair *domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		User:         userResponse(&pair.User),
	}
}

// bearerVerifier adapts AuthService to the httpx authn middleware.
func bearerVerifier(svc *service.AuthService) httpx.BearerVerifier {
	return httpx.BearerVerifierFunc(func(ctx context.Context, token string) (httpx.Principal, bool) {
		user, ok := svc.VerifyBearer(ctx, token)
		if !ok {
			return httpx.Principal{}, false
		}
		return httpx.Principal{
			ID:       user.ID,
			Fullname: user.Fullname,
			Email:    user.Email,
			Role:     string(user.Role),
		}, true
	})
}
