// Package ratelimit throttles credential-guessing traffic with a
// Redis-backed fixed window counter.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/crescendolabs/identity/pkg/errors"
	"github.com/crescendolabs/identity/pkg/httputil"
)

// Config holds rate limiter settings.
type Config struct {
	// Limit is the number of requests allowed per window per client IP.
	Limit int
	// Window is the counting interval.
	Window time.Duration
	// Prefix namespaces the Redis keys.
	Prefix string
	// TrustProxyHeader honors X-Forwarded-For when the service sits behind
	// a proxy that overwrites it. Off by default: a direct client could
	// rotate forged headers to reset its counter.
	TrustProxyHeader bool
}

// DefaultConfig allows 10 attempts per minute per client IP.
func DefaultConfig() Config {
	return Config{
		Limit:  10,
		Window: time.Minute,
		Prefix: "ratelimit:login",
	}
}

// Limiter counts requests per client IP in Redis. When Redis is down the
// limiter fails open; login availability wins over throttling.
type Limiter struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger
}

// NewLimiter creates a limiter.
func NewLimiter(client *redis.Client, cfg Config, logger *slog.Logger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultConfig().Prefix
	}
	return &Limiter{client: client, cfg: cfg, logger: logger}
}

// Allow increments the counter for key and reports whether the request is
// within the window's limit.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.cfg.Prefix, key)

	pipe := l.client.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}

	return count.Val() <= int64(l.cfg.Limit), nil
}

// Middleware rejects requests over the limit with 429. The counter keys on
// the client IP.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := l.Allow(r.Context(), clientIP(r, l.cfg.TrustProxyHeader))
			if err != nil {
				l.logger.WarnContext(r.Context(), "rate limiter unavailable, failing open",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				httputil.WriteError(w, r, &apperrors.AppError{
					Code:    "RATE_LIMITED",
					Message: "too many attempts, try again later",
					Status:  http.StatusTooManyRequests,
				}, l.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys on the connection's remote address. Only behind a trusted
// proxy does the leftmost X-Forwarded-For entry take precedence.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
