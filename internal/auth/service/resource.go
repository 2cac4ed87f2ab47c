package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/aussiebroadwan/agentauth/pkg/urlsig"
)

// IssueResourceAccess grants userID time-boxed access to one resource. The
// grant comes as both a resource-access token and a signed URL so it can be
// embedded in rendered links. A ttl that is not positive uses the configured
// default.
func (s *AuthService) IssueResourceAccess(
	ctx context.Context,
	resourceType, resourceID, userID string,
	ttl time.Duration,
) (*domain.ResourceAccess, error) {
	resourceType = strings.TrimSpace(resourceType)
	resourceID = strings.TrimSpace(resourceID)
	if resourceType == "" {
		return nil, invalid("resource_type", "Resource type is required")
	}
	if resourceID == "" {
		return nil, invalid("resource_id", "Resource id is required")
	}
	if ttl <= 0 {
		ttl = s.cfg.ResourceTTL
	}

	now := s.now()
	token, err := s.tokens.CreateResourceAccessToken(resourceType, resourceID, userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign resource token: %w", err)
	}
	signed, err := s.urls.Sign(urlsig.ResourcePath(resourceType, resourceID), ttl)
	if err != nil {
		return nil, fmt.Errorf("sign resource url: %w", err)
	}
	s.metrics.ObserveTokenIssued(string(jwtx.TokenTypeResourceAccess))

	slogx.FromContext(ctx).Info("resource access issued",
		slog.String("user_id", userID),
		slog.String("resource_type", resourceType),
		slog.String("resource_id", resourceID),
	)
	return &domain.ResourceAccess{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Token:        token,
		SignedURL:    signed,
		ExpiresAt:    now.Add(ttl).UTC().Truncate(time.Second),
	}, nil
}

// VerifyResourceAccess accepts a resource-access token only for the
// resource it was minted for.
func (s *AuthService) VerifyResourceAccess(ctx context.Context, token, resourceType, resourceID string) (*jwtx.Claims, bool) {
	claims, ok := s.tokens.VerifyType(token, jwtx.TokenTypeResourceAccess)
	if !ok {
		return nil, false
	}
	if claims.ResourceType != resourceType || claims.ResourceID != resourceID {
		slogx.FromContext(ctx).Warn("resource token used for another resource",
			slog.String("want", resourceType+"/"+resourceID),
			slog.String("got", claims.ResourceType+"/"+claims.ResourceID),
		)
		return nil, false
	}
	return claims, true
}

// VerifySignedURL checks a request URI produced by IssueResourceAccess.
func (s *AuthService) VerifySignedURL(requestURI string) bool {
	return s.urls.Verify(requestURI)
}

// SignerReady round-trips a throwaway resource token through the codec.
func (s *AuthService) SignerReady() bool {
	token, err := s.tokens.CreateResourceAccessToken("probe", "readyz", "", time.Minute)
	if err != nil {
		return false
	}
	_, ok := s.tokens.VerifyType(token, jwtx.TokenTypeResourceAccess)
	return ok
}
