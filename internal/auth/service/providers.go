package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/metrics"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
)

// authenticator checks credentials and resolves bearer claims for one
// AuthProvider. A nil user with a nil error means the credentials were
// rejected.
type authenticator interface {
	provider() domain.AuthProvider
	authenticate(ctx context.Context, email, password string) (*domain.User, error)
	principal(ctx context.Context, claims *jwtx.Claims) (*domain.User, error)
}

func newAuthenticator(s *AuthService) (authenticator, error) {
	switch s.cfg.Provider {
	case domain.AuthProviderNone:
		return noneAuthenticator{}, nil
	case domain.AuthProviderLocal:
		if s.cfg.LocalEmail == "" || s.cfg.LocalPassword == "" {
			return nil, errors.New("local auth provider requires an email and password")
		}
		return localAuthenticator{email: s.cfg.LocalEmail, password: s.cfg.LocalPassword}, nil
	case domain.AuthProviderPassword:
		return &passwordAuthenticator{svc: s}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedAuthProvider, s.cfg.Provider)
	}
}

// claimsUser rebuilds a principal from access-token claims for the modes
// that have no backing store.
func claimsUser(claims *jwtx.Claims) *domain.User {
	return &domain.User{
		ID:       claims.Subject,
		Fullname: claims.Fullname,
		Email:    claims.Email,
		Role:     roleOrUser(claims.Role),
		IsActive: claims.Active(),
	}
}

func roleOrUser(s string) domain.Role {
	if r, err := domain.ParseRole(s); err == nil {
		return r
	}
	return domain.RoleUser
}

type noneAuthenticator struct{}

func (noneAuthenticator) provider() domain.AuthProvider { return domain.AuthProviderNone }

func (noneAuthenticator) authenticate(context.Context, string, string) (*domain.User, error) {
	return &domain.User{
		ID:       domain.AnonymousUserID,
		Fullname: domain.AnonymousName,
		Email:    domain.AnonymousEmail,
		Role:     domain.RoleUser,
		IsActive: true,
	}, nil
}

func (noneAuthenticator) principal(_ context.Context, claims *jwtx.Claims) (*domain.User, error) {
	return claimsUser(claims), nil
}

type localAuthenticator struct {
	email    string
	password string
}

func (localAuthenticator) provider() domain.AuthProvider { return domain.AuthProviderLocal }

func (a localAuthenticator) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(a.email))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password))
	if emailOK&passOK != 1 {
		slogx.FromContext(ctx).Warn("local authentication failed", slog.String("email", email))
		return nil, nil
	}
	return &domain.User{
		ID:       domain.LocalAdminUserID,
		Fullname: domain.LocalAdminName,
		Email:    email,
		Role:     domain.RoleAdmin,
		IsActive: true,
	}, nil
}

func (localAuthenticator) principal(_ context.Context, claims *jwtx.Claims) (*domain.User, error) {
	return claimsUser(claims), nil
}

type passwordAuthenticator struct {
	svc *AuthService
}

func (*passwordAuthenticator) provider() domain.AuthProvider { return domain.AuthProviderPassword }

func (a *passwordAuthenticator) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	s := a.svc
	l := slogx.FromContext(ctx).With(slog.String("email", email))

	user, err := s.store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		// Burn the same KDF time as a real check so response latency does
		// not reveal which emails are registered.
		_, _ = s.kdf.VerifyPassword(ctx, s.hasher, password, s.dummyHash)
		l.Warn("user not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		l.Warn("user account is inactive", slog.String("user_id", user.ID))
		return nil, nil
	}
	if !user.HasPassword() {
		l.Warn("user has no password hash", slog.String("user_id", user.ID))
		return nil, nil
	}

	ok, err := s.kdf.VerifyPassword(ctx, s.hasher, password, *user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		l.Warn("invalid password", slog.String("user_id", user.ID))
		return nil, nil
	}

	now := s.now().UTC()
	var upgraded *string
	if s.hasher.NeedsRehash(*user.PasswordHash) {
		if hash, err := s.kdf.HashPassword(ctx, s.hasher, password); err != nil {
			l.Error("failed to upgrade password hash", slog.Any("error", err))
		} else {
			upgraded = &hash
		}
	}
	// The account may have been deactivated while the KDF ran.
	err = s.store.Users().RecordLogin(ctx, user.ID, now, upgraded)
	if errors.Is(err, store.ErrNotFound) {
		l.Warn("user deactivated during login", slog.String("user_id", user.ID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	if upgraded != nil {
		user.SetPasswordHash(*upgraded, now)
		l.Info("password hash upgraded", slog.String("user_id", user.ID))
	}
	user.TouchLogin(now)

	l.Info("user authenticated", slog.String("user_id", user.ID))
	return &user, nil
}

// principal re-reads the user so that deactivation takes effect before the
// token expires.
func (a *passwordAuthenticator) principal(ctx context.Context, claims *jwtx.Claims) (*domain.User, error) {
	user, err := a.svc.store.Users().GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, nil
	}
	return &user, nil
}

func outcome(user *domain.User, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case user == nil:
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeSuccess
	}
}
