package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/metrics"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/idx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/aussiebroadwan/agentauth/pkg/urlsig"
)

const (
	minFullnameLength = 2
	minPasswordLength = 6

	TokenTypeBearer = "bearer"
)

// Config is the read-only part of the process configuration the auth
// service needs.
type Config struct {
	Provider      domain.AuthProvider
	LocalEmail    string
	LocalPassword string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResourceTTL   time.Duration
}

// Deps are the collaborators an AuthService is built from. Metrics may be nil.
type Deps struct {
	Store   store.Store
	Hasher  *cryptox.PasswordHasher
	KDF     *cryptox.KDFPool
	Tokens  *jwtx.Codec
	URLs    *urlsig.Signer
	Metrics *metrics.Metrics
}

// AuthService implements registration, login, token refresh and account
// management on top of a user store.
type AuthService struct {
	cfg     Config
	store   store.Store
	hasher  *cryptox.PasswordHasher
	kdf     *cryptox.KDFPool
	tokens  *jwtx.Codec
	urls    *urlsig.Signer
	metrics *metrics.Metrics
	auth    authenticator
	now     func() time.Time

	// dummyHash is verified against when a login names an unknown email.
	dummyHash string
}

// NewAuthService resolves the configured provider once. An unsupported
// provider is returned as an error wrapping domain.ErrUnsupportedAuthProvider.
func NewAuthService(cfg Config, deps Deps) (*AuthService, error) {
	if deps.Store == nil || deps.Hasher == nil || deps.Tokens == nil || deps.URLs == nil {
		return nil, errors.New("auth service: missing dependency")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.ResourceTTL <= 0 {
		cfg.ResourceTTL = jwtx.DefaultResourceAccessTTL
	}
	if deps.KDF == nil {
		deps.KDF = cryptox.NewKDFPool(0)
	}

	s := &AuthService{
		cfg:     cfg,
		store:   deps.Store,
		hasher:  deps.Hasher,
		kdf:     deps.KDF,
		tokens:  deps.Tokens,
		urls:    deps.URLs,
		metrics: deps.Metrics,
		now:     time.Now,
	}

	auth, err := newAuthenticator(s)
	if err != nil {
		return nil, err
	}
	s.auth = auth

	if cfg.Provider == domain.AuthProviderPassword {
		dummy, err := s.hasher.Hash("agentauth-timing-equaliser")
		if err != nil {
			return nil, fmt.Errorf("auth service: %w", err)
		}
		s.dummyHash = dummy
	}
	return s, nil
}

// Provider reports the auth provider resolved at construction.
func (s *AuthService) Provider() domain.AuthProvider { return s.auth.provider() }

// AccessTTL is the lifetime of issued access tokens.
func (s *AuthService) AccessTTL() time.Duration { return s.cfg.AccessTTL }

// Register creates an active user account. It is only available with the
// password provider.
func (s *AuthService) Register(ctx context.Context, fullname, password, email string) (*domain.User, error) {
	return s.RegisterWithRole(ctx, fullname, password, email, domain.RoleUser)
}

// RegisterWithRole is Register with an explicit role.
func (s *AuthService) RegisterWithRole(
	ctx context.Context,
	fullname, password, email string,
	role domain.Role,
) (*domain.User, error) {
	l := slogx.FromContext(ctx).With(slog.String("email", email))
	l.Info("registering user")

	if s.cfg.Provider != domain.AuthProviderPassword {
		return nil, ErrRegistrationDisabled
	}

	fullname = strings.TrimSpace(fullname)
	if utf8.RuneCountInString(fullname) < minFullnameLength {
		return nil, invalid("fullname", "Full name must be at least 2 characters long")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "Valid email is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, invalid("password", "Password must be at least 6 characters long")
	}
	if !role.Valid() {
		return nil, invalid("role", "Role must be user or admin")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := s.kdf.HashPassword(ctx, s.hasher, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Fullname:     fullname,
		Email:        email,
		PasswordHash: &hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		exists, err := tx.Users().EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return invalid("email", "Email already exists")
		}
		return tx.Users().CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return nil, invalid("email", "Email already exists")
	}
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	l.Info("user registered", slog.String("user_id", user.ID))
	return &user, nil
}

// Authenticate checks credentials with the configured provider. A nil user
// and nil error means the credentials were rejected.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.auth.authenticate(ctx, email, password)
	s.metrics.ObserveAuth(s.auth.provider().String(), outcome(user, err))
	return user, err
}

// Login authenticates and issues an access and refresh token pair. Every
// credential failure is reported as ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	subject := subjectOf(user)
	access, err := s.tokens.CreateAccessToken(subject, s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.CreateRefreshToken(subject, s.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}
	s.metrics.ObserveTokenIssued(string(jwtx.TokenTypeAccess))
	s.metrics.ObserveTokenIssued(string(jwtx.TokenTypeRefresh))

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    s.cfg.AccessTTL,
		User:         *user,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, ok := s.tokens.VerifyType(refreshToken, jwtx.TokenTypeRefresh)
	if !ok {
		return nil, ErrInvalidToken
	}

	var user *domain.User
	if s.cfg.Provider == domain.AuthProviderPassword {
		u, err := s.store.Users().GetUserByID(ctx, claims.Subject)
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("refresh for unknown user", slog.String("user_id", claims.Subject))
			return nil, ErrInvalidToken
		}
		if err != nil {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		user = &u
	} else {
		// Refresh tokens carry no email or role; re-authenticating yields
		// the same fixed principal the token was minted for.
		u, err := s.fixedPrincipal(ctx, claims)
		if err != nil {
			return nil, err
		}
		user = u
	}
	if !user.IsActive {
		l.Warn("refresh for inactive user", slog.String("user_id", user.ID))
		return nil, ErrInvalidToken
	}

	access, err := s.tokens.CreateAccessToken(subjectOf(user), s.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	s.metrics.ObserveTokenIssued(string(jwtx.TokenTypeAccess))

	return &domain.TokenPair{
		AccessToken: access,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   s.cfg.AccessTTL,
		User:        *user,
	}, nil
}

// fixedPrincipal resolves the single identity of the none and local providers.
func (s *AuthService) fixedPrincipal(ctx context.Context, claims *jwtx.Claims) (*domain.User, error) {
	switch a := s.auth.(type) {
	case noneAuthenticator:
		return a.authenticate(ctx, "", "")
	case localAuthenticator:
		if claims.Subject != domain.LocalAdminUserID {
			return nil, ErrInvalidToken
		}
		return &domain.User{
			ID:       domain.LocalAdminUserID,
			Fullname: domain.LocalAdminName,
			Email:    a.email,
			Role:     domain.RoleAdmin,
			IsActive: true,
		}, nil
	default:
		return nil, ErrInvalidToken
	}
}

// VerifyBearer resolves an access token to its user. With the password
// provider the user is re-read from storage and must still be active.
func (s *AuthService) VerifyBearer(ctx context.Context, token string) (*domain.User, bool) {
	claims, ok := s.tokens.VerifyType(token, jwtx.TokenTypeAccess)
	if !ok {
		return nil, false
	}
	user, err := s.auth.principal(ctx, claims)
	if err != nil {
		slogx.FromContext(ctx).Error("bearer lookup failed",
			slog.String("user_id", claims.Subject),
			slog.Any("error", err),
		)
		return nil, false
	}
	if user == nil || !user.IsActive {
		return nil, false
	}
	return user, true
}

// Logout acknowledges a logout. Tokens are stateless and remain valid until
// they expire.
func (s *AuthService) Logout(ctx context.Context, token string) (bool, error) {
	if s.cfg.Provider == domain.AuthProviderNone {
		return false, ErrLogoutDisabled
	}
	slogx.FromContext(ctx).Info("logout", slog.String("token_fp", cryptox.Fingerprint(token)))
	return s.tokens.Revoke(token), nil
}

// ChangePassword replaces the password after checking the old one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	l := slogx.FromContext(ctx).With(slog.String("user_id", userID))
	l.Info("changing password")

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrAccountInactive
	}
	if !user.HasPassword() {
		return ErrInvalidOldPassword
	}
	ok, err := s.kdf.VerifyPassword(ctx, s.hasher, oldPassword, *user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		l.Warn("invalid old password")
		return ErrInvalidOldPassword
	}
	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return invalid("new_password", "New password must be at least 6 characters long")
	}

	if err := s.setPassword(ctx, &user, newPassword); err != nil {
		return err
	}
	l.Info("password changed")
	return nil
}

// ChangeFullname renames an active user.
func (s *AuthService) ChangeFullname(ctx context.Context, userID, fullname string) (*domain.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	fullname = strings.TrimSpace(fullname)
	if utf8.RuneCountInString(fullname) < minFullnameLength {
		return nil, invalid("fullname", "Full name must be at least 2 characters long")
	}

	now := s.now().UTC()
	err = s.store.Users().UpdateFullname(ctx, user.ID, fullname, now)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAccountInactive
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	user.Rename(fullname, now)
	slogx.FromContext(ctx).Info("fullname changed", slog.String("user_id", userID))
	return &user, nil
}

// ResetPassword sets a new password for the account with email. Proof of
// identity is the caller's responsibility.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	l := slogx.FromContext(ctx).With(slog.String("email", email))
	l.Info("resetting password")

	if s.cfg.Provider != domain.AuthProviderPassword {
		return ErrPasswordResetDisabled
	}

	user, err := s.store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return invalid("email", "User not found")
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return ErrAccountInactive
	}
	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return invalid("new_password", "New password must be at least 6 characters long")
	}

	if err := s.setPassword(ctx, &user, newPassword); err != nil {
		return err
	}
	l.Info("password reset", slog.String("user_id", user.ID))
	return nil
}

func (s *AuthService) Activate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, true)
}

// Deactivate disables an account. With the password provider its existing
// access tokens stop working immediately.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, false)
}

func (s *AuthService) setActive(ctx context.Context, userID string, active bool) error {
	err := s.store.Users().SetActive(ctx, userID, active, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return invalid("user_id", "User not found")
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	slogx.FromContext(ctx).Info("user activation changed",
		slog.String("user_id", userID),
		slog.Bool("active", active),
	)
	return nil
}

// GetUser returns the stored user or ErrUserNotFound.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) loadUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, invalid("user_id", "User not found")
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *AuthService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := s.kdf.HashPassword(ctx, s.hasher, password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	err = s.store.Users().UpdatePasswordHash(ctx, user.ID, hash, now)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountInactive
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	user.SetPasswordHash(hash, now)
	return nil
}

func subjectOf(u *domain.User) jwtx.Subject {
	return jwtx.Subject{
		ID:       u.ID,
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}
