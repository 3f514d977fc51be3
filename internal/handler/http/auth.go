// Package http exposes the service over HTTP using chi.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/crescendolabs/identity/internal/domain"
	"github.com/crescendolabs/identity/internal/service"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
	"github.com/crescendolabs/identity/pkg/httputil"
	"github.com/crescendolabs/identity/pkg/middleware"
	"github.com/crescendolabs/identity/pkg/validator"
)

const maxBodyBytes = 1 << 20 // 1MB

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AuthHandler handles the session endpoints.
type AuthHandler struct {
	sessions *service.SessionService
	cookies  CookieConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(sessions *service.SessionService, cookies CookieConfig, logger *slog.Logger) *AuthHandler {
	if cookies.AccessTTL <= 0 {
		cookies.AccessTTL = time.Hour
	}
	if cookies.RefreshTTL <= 0 {
		cookies.RefreshTTL = 365 * 24 * time.Hour
	}
	return &AuthHandler{sessions: sessions, cookies: cookies, logger: logger}
}

// --- Request DTOs ---

// RegisterRequest is the JSON request body for self-registration.
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// IDResponse carries just the acting user's id, mirroring what the session
// endpoints return alongside the cookie pair.
type IDResponse struct {
	ID int64 `json:"id"`
}

// --- Handlers ---

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.sessions.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: IDResponse{ID: user.ID}})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, tokens, err := h.sessions.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: IDResponse{ID: user.ID}})
}

// Self handles GET /api/v1/auth/self.
func (h *AuthHandler) Self(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	user, err := h.sessions.Self(r.Context(), principal.UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}

// Refresh handles POST /api/v1/auth/refresh. The refresh gate has already
// verified the artifact's signature and attached the principal and jti.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	tokenID := middleware.RefreshTokenIDFromContext(r.Context())
	if principal == nil || tokenID == 0 {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	user, tokens, err := h.sessions.Refresh(r.Context(), domain.Principal{
		UserID: principal.UserID,
		Role:   domain.Role(principal.Role),
	}, tokenID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.setSessionCookies(w, tokens)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: IDResponse{ID: user.ID}})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFromContext(r.Context())
	tokenID := middleware.RefreshTokenIDFromContext(r.Context())
	if principal == nil || tokenID == 0 {
		httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), h.logger)
		return
	}

	err := h.sessions.Logout(r.Context(), domain.Principal{
		UserID: principal.UserID,
		Role:   domain.Role(principal.Role),
	}, tokenID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.clearSessionCookies(w)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{})
}

// --- Cookie helpers ---

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, tokens *domain.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(h.cookies.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   int(h.cookies.RefreshTTL.Seconds()),
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   h.cookies.Domain,
			MaxAge:   -1,
			Secure:   h.cookies.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
