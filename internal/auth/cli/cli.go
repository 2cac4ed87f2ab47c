// Package cli implements authctl, the operator command line for the auth
// service. Commands read the same environment as the server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/app"
	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/aussiebroadwan/agentauth/pkg/urlsig"
	"github.com/spf13/cobra"
)

// ConfigLoader returns a validated configuration.
type ConfigLoader func(logger *slog.Logger) (app.Config, error)

// EnvConfig loads and validates the configuration from the environment.
func EnvConfig(logger *slog.Logger) (app.Config, error) {
	cfg := app.LoadConfig()
	if err := cfg.Validate(logger); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// ErrMismatch is returned by the verify commands on a negative result.
var ErrMismatch = errors.New("verification failed")

type env struct {
	load   ConfigLoader
	logger *slog.Logger
}

// NewRootCommand builds the authctl command tree.
func NewRootCommand(load ConfigLoader) *cobra.Command {
	e := &env{load: load}

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operator tooling for the agent auth service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			e.logger = slogx.New(slogx.Config{
				Service: "authctl",
				Version: app.BuildVersion,
				Level:   "warn",
				Format:  "text",
				Output:  cmd.ErrOrStderr(),
			})
		},
	}

	root.AddCommand(
		e.hashPasswordCmd(),
		e.verifyPasswordCmd(),
		e.signURLCmd(),
		e.verifyURLCmd(),
		e.resourceTokenCmd(),
		genSecretCmd(),
		e.createAdminCmd(),
	)
	return root
}

// Execute runs authctl against the process environment.
func Execute() {
	if err := NewRootCommand(EnvConfig).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (e *env) hashPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password with the configured pepper and rounds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.load(e.logger)
			if err != nil {
				return err
			}
			hash, err := cryptox.NewPasswordHasher(cfg.Pepper, cfg.HashRounds, e.logger).Hash(password)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), hash)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password to hash")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (e *env) verifyPasswordCmd() *cobra.Command {
	var password, hash string
	cmd := &cobra.Command{
		Use:   "verify-password",
		Short: "Check a password against a stored hash",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.load(e.logger)
			if err != nil {
				return err
			}
			h := cryptox.NewPasswordHasher(cfg.Pepper, cfg.HashRounds, e.logger)
			if !h.Verify(password, hash) {
				return ErrMismatch
			}
			if h.NeedsRehash(hash) {
				return writeLine(cmd.OutOrStdout(), "ok (needs rehash)")
			}
			return writeLine(cmd.OutOrStdout(), "ok")
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Candidate password")
	cmd.Flags().StringVar(&hash, "hash", "", "Stored hash")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func (e *env) signURLCmd() *cobra.Command {
	var (
		path string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sign-url",
		Short: "Sign a URL path so it can be fetched without a bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, cfg, err := e.signer()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.ResourceTTL
			}
			signed, err := signer.Sign(path, ttl)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), signed)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Path (and optional query) to sign, e.g. /api/v1/files/42")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lifetime (default SIGNED_URL_EXPIRE_MINUTES)")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func (e *env) verifyURLCmd() *cobra.Command {
	var rawURL string
	cmd := &cobra.Command{
		Use:   "verify-url",
		Short: "Check the signature and expiry of a signed URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, _, err := e.signer()
			if err != nil {
				return err
			}
			if !signer.Verify(rawURL) {
				return ErrMismatch
			}
			return writeLine(cmd.OutOrStdout(), "ok")
		},
	}
	cmd.Flags().StringVar(&rawURL, "url", "", "Signed URL")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func (e *env) resourceTokenCmd() *cobra.Command {
	var (
		resourceType, resourceID, userID string
		ttl                              time.Duration
	)
	cmd := &cobra.Command{
		Use:   "resource-token",
		Short: "Mint a resource-access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.load(e.logger)
			if err != nil {
				return err
			}
			codec, err := jwtx.NewCodec(cfg.JWTSecret, cfg.JWTAlg, e.logger)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.ResourceTTL
			}
			token, err := codec.CreateResourceAccessToken(resourceType, resourceID, userID, ttl)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), token)
		},
	}
	cmd.Flags().StringVar(&resourceType, "type", "", "Resource type, e.g. file")
	cmd.Flags().StringVar(&resourceID, "id", "", "Resource ID")
	cmd.Flags().StringVar(&userID, "user", "", "User the grant is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Lifetime (default SIGNED_URL_EXPIRE_MINUTES)")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func genSecretCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Print a random secret suitable for JWT_SECRET_KEY or PASSWORD_SALT",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := cryptox.GenerateSecret(size)
			if err != nil {
				return err
			}
			return writeLine(cmd.OutOrStdout(), secret)
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "Number of random bytes")
	return cmd
}

func (e *env) createAdminCmd() *cobra.Command {
	var email, password, fullname string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator in the configured user store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := e.load(e.logger)
			if err != nil {
				return err
			}
			if cfg.Provider != domain.AuthProviderPassword {
				return fmt.Errorf("create-admin needs the password provider, got %q", cfg.Provider)
			}

			ctx := slogx.WithContext(cmd.Context(), e.logger)
			return withService(ctx, cfg, e.logger, func(ctx context.Context, svc *service.AuthService) error {
				if fullname == "" {
					fullname = "Administrator"
				}
				user, err := svc.RegisterWithRole(ctx, fullname, password, email, domain.RoleAdmin)
				if err != nil {
					return err
				}
				return writeLine(cmd.OutOrStdout(), user.ID)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password")
	cmd.Flags().StringVar(&fullname, "fullname", "", "Display name (default Administrator)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (e *env) signer() (*urlsig.Signer, app.Config, error) {
	cfg, err := e.load(e.logger)
	if err != nil {
		return nil, app.Config{}, err
	}
	signer, err := urlsig.New(cfg.JWTSecret, e.logger)
	return signer, cfg, err
}

func writeLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}
