package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/agentauth/internal/auth/http"
	"github.com/aussiebroadwan/agentauth/internal/auth/metrics"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/agentauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/jwtx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"
	"github.com/aussiebroadwan/agentauth/pkg/urlsig"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	rateLimitPrefix = "agentauth:rl:"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	redis   *redis.Client // nil unless REDIS_URL is set
	metrics *metrics.Metrics

	auth *service.AuthService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// NewLogger builds the process logger from cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "agentauth",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{logger: NewLogger(cfg)}

	if err := cfg.Validate(app.logger); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app.cfg = cfg

	ctx := context.Background()

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if cfg.MetricsEnabled {
		m, err := metrics.New()
		if err != nil {
			app.closeDeps()
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		app.metrics = m
	}

	if err := app.initRedis(ctx); err != nil {
		app.closeDeps()
		return nil, err
	}

	auth, err := NewAuthService(cfg, app.db, app.metrics, app.logger)
	if err != nil {
		app.closeDeps()
		return nil, err
	}
	app.auth = auth

	if err := app.bootstrap(ctx); err != nil {
		app.closeDeps()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"provider", app.auth.Provider(),
		"database", app.cfg.DatabaseDriver,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		app.closeDeps()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if err := app.closeDeps(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeDeps() error {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
		app.redis = nil
	}
	if app.db == nil {
		return nil
	}
	err := app.db.Close()
	app.db = nil
	if err != nil {
		app.logger.Error("error closing database", "error", err)
	}
	return err
}

// OpenStore opens the configured user store and applies its migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// NewAuthService builds the credential and token stack over st. m may be nil.
func NewAuthService(cfg Config, st store.Store, m *metrics.Metrics, logger *slog.Logger) (*service.AuthService, error) {
	tokens, err := jwtx.NewCodec(cfg.JWTSecret, cfg.JWTAlg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	urls, err := urlsig.New(cfg.JWTSecret, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize url signer: %w", err)
	}

	kdf := cryptox.NewKDFPool(cfg.KDFWorkers)
	if m != nil {
		kdf.Observe = m.ObserveKDF
	}

	return service.NewAuthService(service.Config{
		Provider:      cfg.Provider,
		LocalEmail:    cfg.LocalEmail,
		LocalPassword: cfg.LocalPassword,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		ResourceTTL:   cfg.ResourceTTL,
	}, service.Deps{
		Store:   st,
		Hasher:  cryptox.NewPasswordHasher(cfg.Pepper, cfg.HashRounds, logger),
		KDF:     kdf,
		Tokens:  tokens,
		URLs:    urls,
		Metrics: m,
	})
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initRedis(ctx context.Context) error {
	if app.cfg.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to reach redis: %w", err)
	}

	app.redis = client
	app.logger.Info("rate limiting backed by redis", "addr", opts.Addr)
	return nil
}

// bootstrap creates the configured admin on an empty store.
func (app *Application) bootstrap(ctx context.Context) error {
	if app.cfg.BootstrapAdminEmail == "" || app.auth.Provider() != domain.AuthProviderPassword {
		return nil
	}

	ctx = slogx.WithContext(ctx, app.logger)
	_, err := app.auth.Bootstrap(ctx, domain.BootstrapData{
		AdminEmail:    app.cfg.BootstrapAdminEmail,
		AdminFullname: app.cfg.BootstrapAdminFullname,
		AdminPassword: app.cfg.BootstrapAdminPassword,
	})
	if err != nil && !errors.Is(err, service.ErrBootstrapAlready) {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.auth, app.db, BuildVersion, app.logger)
	router.Metrics = app.metrics
	if app.redis != nil {
		router.Limiters = httpx.RedisLimiterFactory(app.redis, rateLimitPrefix)
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
