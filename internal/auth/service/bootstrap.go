package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

// IsBootstrapped reports whether any user exists.
func (s *AuthService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the first administrator on an empty store. It returns
// ErrBootstrapAlready once any user exists.
func (s *AuthService) Bootstrap(ctx context.Context, req domain.BootstrapData) (*domain.User, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return nil, err
	}
	if bootstrapped {
		l.Debug("bootstrap skipped, users already exist")
		return nil, ErrBootstrapAlready
	}

	fullname := req.AdminFullname
	if fullname == "" {
		fullname = "Administrator"
	}
	user, err := s.RegisterWithRole(ctx, fullname, req.AdminPassword, req.AdminEmail, domain.RoleAdmin)
	if err != nil {
		l.Error("failed to create admin user", slog.Any("error", err))
		return nil, err
	}

	l.Info("bootstrapped admin user", slog.String("admin_user_id", user.ID))
	return user, nil
}
