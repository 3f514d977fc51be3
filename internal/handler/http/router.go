package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crescendolabs/identity/internal/service"
	"github.com/crescendolabs/identity/internal/token"
	"github.com/crescendolabs/identity/pkg/health"
	"github.com/crescendolabs/identity/pkg/middleware"
)

// RouterConfig collects everything the router wires together.
type RouterConfig struct {
	Sessions *service.SessionService
	Users    *service.UserService
	Tenants  *service.TenantService
	Issuer   *token.Issuer
	Checker  *health.Checker
	// LoginLimiter throttles register/login attempts; nil disables it.
	LoginLimiter func(http.Handler) http.Handler
	Cookies      CookieConfig
	CORS         CORSConfig
	Logger       *slog.Logger
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.Tracing("identity"))
	r.Use(middleware.PrometheusMetrics("identity"))
	r.Use(middleware.RequestLogger(cfg.Logger))

	r.Get("/health/live", cfg.Checker.LivenessHandler())
	r.Get("/health/ready", cfg.Checker.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	jwksHandler := NewJWKSHandler(cfg.Issuer.PublicKey())
	r.Get("/.well-known/jwks.json", jwksHandler.Serve)

	accessGate := middleware.Authenticate(accessValidator(cfg.Issuer))
	refreshGate := middleware.AuthenticateRefresh(refreshValidator(cfg.Issuer))

	authHandler := NewAuthHandler(cfg.Sessions, cfg.Cookies, cfg.Logger)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			if cfg.LoginLimiter != nil {
				r.Use(cfg.LoginLimiter)
			}
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(refreshGate)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(accessGate)
			r.Get("/self", authHandler.Self)
		})
	})

	adminOnly := middleware.RequireRole("admin")

	userHandler := NewUserHandler(cfg.Users, cfg.Logger)
	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(accessGate)
		r.Use(adminOnly)

		r.Post("/", userHandler.Create)
		r.Get("/", userHandler.List)
		r.Get("/{id}", userHandler.Get)
		r.Patch("/{id}", userHandler.Update)
		r.Delete("/{id}", userHandler.Delete)
	})

	tenantHandler := NewTenantHandler(cfg.Tenants, cfg.Logger)
	r.Route("/api/v1/tenants", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(accessGate)
		r.Use(adminOnly)

		r.Post("/", tenantHandler.Create)
		r.Get("/", tenantHandler.List)
		r.Get("/{id}", tenantHandler.Get)
		r.Patch("/{id}", tenantHandler.Update)
		r.Delete("/{id}", tenantHandler.Delete)
	})

	return r
}

// accessValidator bridges the issuer to the authentication gate.
func accessValidator(issuer *token.Issuer) middleware.AccessValidator {
	return func(tokenString string) (*middleware.Principal, error) {
		principal, err := issuer.ValidateAccessToken(tokenString)
		if err != nil {
			return nil, err
		}
		return &middleware.Principal{
			UserID: principal.UserID,
			Role:   principal.Role.String(),
		}, nil
	}
}

// refreshValidator bridges the issuer to the refresh-mode gate. The jti is
// handed to the handlers; record liveness is enforced there, not here.
func refreshValidator(issuer *token.Issuer) middleware.RefreshValidator {
	return func(tokenString string) (*middleware.Principal, int64, error) {
		principal, recordID, err := issuer.ValidateRefreshToken(tokenString)
		if err != nil {
			return nil, 0, err
		}
		return &middleware.Principal{
			UserID: principal.UserID,
			Role:   principal.Role.String(),
		}, recordID, nil
	}
}
