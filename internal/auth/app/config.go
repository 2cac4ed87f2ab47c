package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/pkg/cryptox"
	"github.com/joho/godotenv"
)

const (
	// placeholderSecret is the value shipped in example env files.
	placeholderSecret = "your-secret-key-here"
	minSecretLength   = 32

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Provider      domain.AuthProvider // Optional: password, none or local (default: password)
	LocalEmail    string              // Required with the local provider
	LocalPassword string              // Required with the local provider

	Pepper     string // Optional: pepper for password hashing (PASSWORD_SALT)
	PepperFile string // Optional: file holding the pepper, used when Pepper is empty
	HashRounds int    // Optional: PBKDF2 rounds for new hashes (default: 100000)
	KDFWorkers int    // Optional: concurrent key derivations (default: GOMAXPROCS)

	JWTSecret   string        // Required in production
	JWTAlg      string        // Optional: HS256, HS384 or HS512 (default: HS256)
	AccessTTL   time.Duration // Optional (default: 30m)
	RefreshTTL  time.Duration // Optional (default: 7d)
	ResourceTTL time.Duration // Optional: signed URL and resource token lifetime (default: 60m)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: sqlite file (default: ./auth.db)
	DatabaseURL    string // Required with postgres

	RedisURL string // Optional: enables shared rate limiting across replicas

	BootstrapAdminEmail    string // Optional: creates the first admin on an empty store
	BootstrapAdminPassword string
	BootstrapAdminFullname string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
	MetricsEnabled      bool          // Serve /metrics (default: true)
}

// LoadConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		Provider:      domain.AuthProvider(getEnvOrDefault("AUTH_PROVIDER", string(domain.AuthProviderPassword))),
		LocalEmail:    os.Getenv("LOCAL_AUTH_EMAIL"),
		LocalPassword: os.Getenv("LOCAL_AUTH_PASSWORD"),

		Pepper:     os.Getenv("PASSWORD_SALT"),
		PepperFile: os.Getenv("AUTH_PEPPER_FILE"),
		HashRounds: getEnvIntOrDefault("PASSWORD_HASH_ROUNDS", cryptox.DefaultHashRounds),
		KDFWorkers: getEnvIntOrDefault("AUTH_KDF_WORKERS", 0),

		JWTSecret:   os.Getenv("JWT_SECRET_KEY"),
		JWTAlg:      getEnvOrDefault("JWT_ALGORITHM", "HS256"),
		AccessTTL:   time.Duration(getEnvIntOrDefault("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		RefreshTTL:  time.Duration(getEnvIntOrDefault("JWT_REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
		ResourceTTL: time.Duration(getEnvIntOrDefault("SIGNED_URL_EXPIRE_MINUTES", 60)) * time.Minute,

		DatabaseDriver: getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),

		RedisURL: os.Getenv("REDIS_URL"),

		BootstrapAdminEmail:    os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("AUTH_BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminFullname: os.Getenv("AUTH_BOOTSTRAP_ADMIN_FULLNAME"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		MetricsEnabled:      getEnvBoolOrDefault("METRICS_ENABLED", true),
	}
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

// Validate checks the configuration and fills in the secrets that may be
// generated. In production a weak JWT secret or a missing pepper is an
// error; elsewhere they are generated and a warning is logged.
func (c *Config) Validate(logger *slog.Logger) error {
	provider, err := domain.ParseAuthProvider(string(c.Provider))
	if err != nil {
		return err
	}
	c.Provider = provider

	if provider == domain.AuthProviderLocal && (c.LocalEmail == "" || c.LocalPassword == "") {
		return errors.New("LOCAL_AUTH_EMAIL and LOCAL_AUTH_PASSWORD are required with the local provider")
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("AUTH_DATABASE_URL is required with the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}

	if c.HashRounds <= 0 {
		c.HashRounds = cryptox.DefaultHashRounds
	}

	if err := c.resolveSecret(logger); err != nil {
		return err
	}
	return c.resolvePepper(logger)
}

func (c *Config) resolveSecret(logger *slog.Logger) error {
	weak := c.JWTSecret == "" || c.JWTSecret == placeholderSecret
	if c.IsProduction() {
		if weak {
			return errors.New("JWT_SECRET_KEY must be set to a secure value in production")
		}
		if len(c.JWTSecret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET_KEY must be at least %d characters in production", minSecretLength)
		}
		return nil
	}

	if weak {
		secret, err := cryptox.GenerateSecret(minSecretLength)
		if err != nil {
			return err
		}
		c.JWTSecret = secret
		logger.Warn("using auto-generated JWT secret for development, tokens will not survive a restart; set JWT_SECRET_KEY in production")
	}
	return nil
}

func (c *Config) resolvePepper(logger *slog.Logger) error {
	if c.Pepper != "" {
		return nil
	}

	if c.PepperFile == "" {
		if c.IsProduction() {
			return errors.New("PASSWORD_SALT or AUTH_PEPPER_FILE must be set in production")
		}
		c.PepperFile = "pepper"
		logger.Warn("using a pepper file in the working directory for development; set PASSWORD_SALT in production",
			slog.String("path", c.PepperFile))
	}

	pepper, err := cryptox.LoadOrGeneratePepper(c.PepperFile)
	if err != nil {
		return fmt.Errorf("load pepper: %w", err)
	}
	c.Pepper = pepper
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
