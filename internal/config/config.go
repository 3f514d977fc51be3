package config

import (
	"fmt"
	"os"
	"time"

	pkgconfig "github.com/crescendolabs/identity/pkg/config"
	"github.com/crescendolabs/identity/pkg/database"
)

const placeholderRefreshSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the identity service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"IDENTITY_HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"identity"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"identity_secret"`
	PostgresDB   string `env:"IDENTITY_DB_NAME" envDefault:"identity_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Token signing. The private key signs access tokens; its public half
	// is published at the JWKS endpoint. The refresh secret is never
	// distributed.
	JWTPrivateKeyFile string        `env:"JWT_PRIVATE_KEY_FILE" envDefault:""`
	JWTRefreshSecret  string        `env:"JWT_REFRESH_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"identity-service"`
	AccessTokenTTL    time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"1h"`
	RefreshTokenTTL   time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"8760h"`

	// Cookies
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Login rate limiting. TrustProxyHeader keys the limiter on
	// X-Forwarded-For; enable only behind a proxy that overwrites it.
	LoginRateLimit   int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow  time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
	TrustProxyHeader bool          `env:"TRUST_PROXY_HEADER" envDefault:"false"`

	// Tracing
	TracingEnabled  bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSample   float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load identity config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.JWTPrivateKeyFile == "" {
		return nil, fmt.Errorf("JWT_PRIVATE_KEY_FILE must be set")
	}

	// Outside development the refresh secret must be explicitly set and
	// strong enough to resist offline guessing.
	if cfg.Environment != "development" {
		if cfg.JWTRefreshSecret == placeholderRefreshSecret {
			return nil, fmt.Errorf("JWT_REFRESH_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTRefreshSecret) < 32 {
			return nil, fmt.Errorf("JWT_REFRESH_SECRET must be at least 32 characters long, got %d", len(cfg.JWTRefreshSecret))
		}
	}

	return cfg, nil
}

// ReadPrivateKey loads the PEM-encoded RSA signing key from disk.
func (c *Config) ReadPrivateKey() ([]byte, error) {
	pem, err := os.ReadFile(c.JWTPrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("read private key %s: %w", c.JWTPrivateKeyFile, err)
	}
	return pem, nil
}

// Postgres returns the pool configuration for the primary database.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	return pg
}

// Redis returns the client configuration for the rate-limit store.
func (c *Config) Redis() database.RedisConfig {
	rd := database.DefaultRedisConfig()
	rd.Host = c.RedisHost
	rd.Port = c.RedisPort
	rd.Password = c.RedisPass
	rd.DB = c.RedisDB
	return rd
}
