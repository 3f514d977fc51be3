package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/crescendolabs/identity/internal/config"
	"github.com/crescendolabs/identity/internal/event"
	handler "github.com/crescendolabs/identity/internal/handler/http"
	"github.com/crescendolabs/identity/internal/password"
	"github.com/crescendolabs/identity/internal/ratelimit"
	"github.com/crescendolabs/identity/internal/repository/postgres"
	"github.com/crescendolabs/identity/internal/service"
	"github.com/crescendolabs/identity/internal/token"
	"github.com/crescendolabs/identity/migrations"
	"github.com/crescendolabs/identity/pkg/database"
	"github.com/crescendolabs/identity/pkg/health"
	pkgkafka "github.com/crescendolabs/identity/pkg/kafka"
	"github.com/crescendolabs/identity/pkg/tracing"
)

// App wires together all dependencies and runs the identity service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "identity",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		Endpoint:       cfg.TracingEndpoint,
		SampleRatio:    cfg.TracingSample,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "identity"); err != nil {
		logger.Warn("register pool metrics", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.Files, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis backs the login rate limiter. The limiter fails open, so a
	// Redis outage degrades throttling rather than taking logins down.
	rdCfg := cfg.Redis()
	redisClient, err := database.NewRedisClient(ctx, &rdCfg)
	if err != nil {
		logger.Warn("redis unavailable, login throttling disabled at startup",
			slog.String("error", err.Error()),
		)
		redisClient = database.NewLazyRedisClient(&rdCfg)
	}

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	keyPEM, err := cfg.ReadPrivateKey()
	if err != nil {
		pool.Close()
		return nil, err
	}
	issuer, err := token.NewIssuer(token.Config{
		PrivateKeyPEM: keyPEM,
		RefreshSecret: cfg.JWTRefreshSecret,
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("build token issuer: %w", err)
	}

	userRepo := postgres.NewUserRepository(pool)
	tenantRepo := postgres.NewTenantRepository(pool)
	tokenRepo := postgres.NewRefreshTokenRepository(pool)
	hasher := password.NewHasher(password.DefaultCost)
	eventProducer := event.NewProducer(producer, logger)

	sessionService := service.NewSessionService(
		userRepo, tokenRepo, hasher, issuer, eventProducer, cfg.RefreshTokenTTL, logger,
	)
	userService := service.NewUserService(userRepo, tenantRepo, hasher, eventProducer, logger)
	tenantService := service.NewTenantService(tenantRepo, eventProducer, logger)

	checker := health.NewChecker(2 * time.Second)
	checker.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	checker.RegisterNonCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	checker.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	limiter := ratelimit.NewLimiter(redisClient, ratelimit.Config{
		Limit:            cfg.LoginRateLimit,
		Window:           cfg.LoginRateWindow,
		Prefix:           "ratelimit:login",
		TrustProxyHeader: cfg.TrustProxyHeader,
	}, logger)

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:     sessionService,
		Users:        userService,
		Tenants:      tenantService,
		Issuer:       issuer,
		Checker:      checker,
		LoginLimiter: limiter.Middleware(),
		Cookies: handler.CookieConfig{
			Domain:     cfg.CookieDomain,
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
		CORS: handler.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		Logger: logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
