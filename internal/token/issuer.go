// Package token issues and validates signed session tokens.
//
// Access tokens are RS256-signed so relying parties can verify them with
// only the public key. Refresh tokens are HS256-signed with a shared secret
// and carry a jti claim binding them to one persisted refresh-token record.
package token

import (
	"crypto/rsa"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crescendolabs/identity/internal/domain"
	apperrors "github.com/crescendolabs/identity/pkg/errors"
)

// DefaultIssuer is the iss claim stamped on every token.
const DefaultIssuer = "identity-service"

// AccessClaims is the claims payload of an access token.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims is the claims payload of a refresh token. The ID field
// (jti) names the persisted record backing this artifact.
type RefreshClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Config holds the signing material and TTLs for the issuer.
type Config struct {
	PrivateKeyPEM []byte
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer mints and validates both token classes.
type Issuer struct {
	privateKey    *rsa.PrivateKey
	publicKey     *rsa.PublicKey
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewIssuer parses the RSA private key and builds an issuer. A missing key
// or secret is a configuration error.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.PrivateKeyPEM) == 0 {
		return nil, fmt.Errorf("token: private key not configured")
	}
	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("token: refresh secret not configured")
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("token: parse private key: %w", err)
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 365 * 24 * time.Hour
	}

	return &Issuer{
		privateKey:    privateKey,
		publicKey:     &privateKey.PublicKey,
		refreshSecret: []byte(cfg.RefreshSecret),
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// GenerateAccessToken signs an RS256 access token for the principal.
func (i *Issuer) GenerateAccessToken(principal domain.Principal) (string, error) {
	now := time.Now().UTC()
	claims := &AccessClaims{
		Role: principal.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principal.UserID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken signs an HS256 refresh token bound to recordID.
func (i *Issuer) GenerateRefreshToken(principal domain.Principal, recordID int64) (string, error) {
	now := time.Now().UTC()
	claims := &RefreshClaims{
		Role: principal.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatInt(recordID, 10),
			Subject:   strconv.FormatInt(principal.UserID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies an RS256 access token and returns its
// principal. Any parse, signature, expiry, or issuer failure is an
// authentication error.
func (i *Issuer) ValidateAccessToken(tokenString string) (domain.Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.publicKey, nil
		},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Principal{}, apperrors.Unauthorized("invalid access token")
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, apperrors.Unauthorized("invalid access token")
	}

	return principalFromClaims(claims.Subject, claims.Role)
}

// ValidateRefreshToken verifies an HS256 refresh token and returns its
// principal plus the persisted record ID from the jti claim. The record's
// liveness is checked by the caller, not here.
func (i *Issuer) ValidateRefreshToken(tokenString string) (domain.Principal, int64, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return i.refreshSecret, nil
		},
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Principal{}, 0, apperrors.Unauthorized("invalid refresh token")
	}

	claims, ok := parsed.Claims.(*RefreshClaims)
	if !ok || !parsed.Valid {
		return domain.Principal{}, 0, apperrors.Unauthorized("invalid refresh token")
	}

	recordID, err := strconv.ParseInt(claims.ID, 10, 64)
	if err != nil {
		return domain.Principal{}, 0, apperrors.Unauthorized("invalid refresh token")
	}

	principal, err := principalFromClaims(claims.Subject, claims.Role)
	if err != nil {
		return domain.Principal{}, 0, err
	}
	return principal, recordID, nil
}

// PublicKey exposes the verification key for JWKS publication.
func (i *Issuer) PublicKey() *rsa.PublicKey {
	return i.publicKey
}

func principalFromClaims(subject, role string) (domain.Principal, error) {
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return domain.Principal{}, apperrors.Unauthorized("invalid token subject")
	}
	r := domain.Role(role)
	if !r.IsValid() {
		return domain.Principal{}, apperrors.Unauthorized("invalid token role")
	}
	return domain.Principal{UserID: userID, Role: r}, nil
}
