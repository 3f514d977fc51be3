package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const (
	principalKey contextKeyType = "principal"
	tokenIDKey   contextKeyType = "token_id"
)

// Cookie names used to carry tokens between the browser and the service.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Principal is the authenticated identity extracted from a verified token.
type Principal struct {
	UserID int64
	Role   string
}

// AccessValidator verifies an access token and returns the principal.
type AccessValidator func(token string) (*Principal, error)

// RefreshValidator verifies a refresh token and returns the principal plus
// the persisted record id bound to the token's jti claim. The validator only
// checks signature, expiry, and issuer; store-backed liveness is the caller's
// job.
type RefreshValidator func(token string) (*Principal, int64, error)

// Authenticate validates the access token carried in the accessToken cookie
// or an Authorization bearer header and injects the principal into context.
// Requests with a missing, malformed, expired, or badly signed token are
// rejected with 401 before the handler runs.
func Authenticate(validate AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, AccessTokenCookie)
			if token == "" {
				writeAuthError(w, "missing access token")
				return
			}

			principal, err := validate(token)
			if err != nil {
				writeAuthError(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// AuthenticateRefresh is the refresh-mode gate: it validates the refresh
// token from the refreshToken cookie or bearer header and injects both the
// principal and the token's record id. It performs no store lookup; rotation
// bookkeeping decides whether the record is still live.
func AuthenticateRefresh(validate RefreshValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r, RefreshTokenCookie)
			if token == "" {
				writeAuthError(w, "missing refresh token")
				return
			}

			principal, tokenID, err := validate(token)
			if err != nil {
				writeAuthError(w, "invalid or expired refresh token")
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = context.WithValue(ctx, tokenIDKey, tokenID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole checks that the authenticated principal's role is in the
// allowed set, rejecting with 403 otherwise. It must run after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				writeAuthError(w, "not authenticated")
				return
			}
			if _, ok := roleSet[principal.Role]; !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "FORBIDDEN",
					"message": "insufficient permissions",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a new context carrying the given principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated principal, or nil when the
// request did not pass an authentication gate.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}

// RefreshTokenIDFromContext extracts the refresh token record id attached by
// AuthenticateRefresh. Returns 0 when absent.
func RefreshTokenIDFromContext(ctx context.Context) int64 {
	if id, ok := ctx.Value(tokenIDKey).(int64); ok {
		return id
	}
	return 0
}

// extractToken pulls a token from the named cookie, falling back to an
// Authorization bearer header.
func extractToken(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
