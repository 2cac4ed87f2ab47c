package cli

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/agentauth/internal/auth/app"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
)

// withService opens the user store for the duration of fn.
func withService(ctx context.Context, cfg app.Config, logger *slog.Logger, fn func(context.Context, *service.AuthService) error) error {
	st, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := app.NewAuthService(cfg, st, nil, logger)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}
