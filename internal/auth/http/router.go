package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/metrics"
	"github.com/aussiebroadwan/agentauth/internal/auth/service"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/httpx"
	"github.com/aussiebroadwan/agentauth/pkg/slogx"

	_ "github.com/aussiebroadwan/agentauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	auth  *service.AuthService

	// Metrics is optional. When set, requests are counted and /metrics is served.
	Metrics *metrics.Metrics
	// Limiters builds the rate limiter backend per profile. Defaults to
	// in-process limiters.
	Limiters httpx.LimiterFactory
}

func NewRouter(
	auth *service.AuthService,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	return &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		auth:         auth,
		Limiters:     httpx.NewLocalLimiter,
	}
}

// ApplyRoutes registers every endpoint. Metrics and Limiters must be set
// before it is called.
func (r *Router) ApplyRoutes() {
	// slogx copies the request, so metrics sits inside it to see the pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.Metrics.Middleware,
	}

	r.registerAuth()
	r.registerAccount()
	r.registerUsers()
	r.registerResources()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpx.Chain(httpSwagger.Handler(),
		r.rateLimitByIP(httpx.PublicLimit),
	))
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Agent Auth Service API
//	@version		0.1.0
//	@description	Credential and token service for agent backends: password login, HMAC-signed access,
//	@description	refresh and resource-access tokens, and signed resource URLs.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/agentauth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(bearerVerifier(r.auth))
}

func (r *Router) rateLimit(cfg httpx.RateLimitConfig, key httpx.KeyExtractor) httpx.Middleware {
	return httpx.RateLimit(&observedLimiter{
		Limiter: r.Limiters(cfg),
		profile: cfg.Name,
		metrics: r.Metrics,
	}, cfg, key)
}

func (r *Router) rateLimitByIP(cfg httpx.RateLimitConfig) httpx.Middleware {
	return r.rateLimit(cfg, httpx.IPKeyExtractor)
}

// rateLimitByUser falls back to the client IP when no user is authenticated.
func (r *Router) rateLimitByUser(cfg httpx.RateLimitConfig) httpx.Middleware {
	return r.rateLimit(cfg, httpx.CompositeKeyExtractor(":",
		httpx.UserIDKeyExtractor,
		httpx.IPKeyExtractor,
	))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.auth}

	// Credential endpoints - strict rate limit by IP
	r.Mux.Handle("POST /api/v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			r.rateLimitByIP(httpx.StrictLimit),
		),
	)

	// Login is keyed on IP and the submitted email
	r.Mux.Handle("POST /api/v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			r.rateLimit(httpx.StrictLimit, httpx.CompositeKeyExtractor(":",
				httpx.IPKeyExtractor,
				httpx.JSONFieldKeyExtractor("email"),
			)),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			r.rateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			r.rateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
			r.rateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{Auth: r.auth}

	r.Mux.Handle("GET /api/v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.authn(),
			r.rateLimitByUser(httpx.LenientLimit),
		),
	)

	// Old password is checked, so treat it as a credential endpoint
	r.Mux.Handle("POST /api/v1/auth/change-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.authn(),
			r.rateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/v1/auth/change-fullname",
		httpx.Chain(http.HandlerFunc(h.HandleChangeFullname),
			r.authn(),
			r.rateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Auth: r.auth}

	admin := func(next http.HandlerFunc) http.Handler {
		return httpx.Chain(next,
			r.authn(),
			httpx.RequireRole(string(domain.RoleAdmin)),
			r.rateLimitByUser(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("GET /api/v1/auth/users/{id}", admin(h.HandleGet))
	r.Mux.Handle("POST /api/v1/auth/users/{id}/activate", admin(h.HandleActivate))
	r.Mux.Handle("POST /api/v1/auth/users/{id}/deactivate", admin(h.HandleDeactivate))
}

func (r *Router) registerResources() {
	h := &ResourceHandler{Auth: r.auth}

	r.Mux.Handle("POST /api/v1/auth/resource-access",
		httpx.Chain(http.HandlerFunc(h.HandleIssue),
			r.authn(),
			r.rateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Grant holders are anonymous, so limit by IP
	r.Mux.Handle("GET /api/v1/files/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleFile),
			r.rateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			r.rateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.auth.SignerReady),
			r.rateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(r.Metrics.Handler(),
				r.rateLimitByIP(httpx.LenientLimit),
			),
		)
	}
}

// observedLimiter counts rejections per profile.
type observedLimiter struct {
	httpx.Limiter
	profile string
	metrics *metrics.Metrics
}

func (l *observedLimiter) Allow(ctx context.Context, key string) (httpx.Decision, error) {
	d, err := l.Limiter.Allow(ctx, key)
	if err == nil && !d.Allowed {
		l.metrics.ObserveRateLimited(l.profile)
	}
	return d, err
}
