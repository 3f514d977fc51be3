package http

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"net/http"

	"github.com/crescendolabs/identity/pkg/httputil"
)

// JWK is one RSA verification key in JSON Web Key form.
type JWK struct {
	KeyType   string `json:"kty"`
	Use       string `json:"use"`
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
	Modulus   string `json:"n"`
	Exponent  string `json:"e"`
}

// JWKS is the key set served at /.well-known/jwks.json.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWKSHandler publishes the access-token verification key so relying
// parties can verify RS256 signatures without sharing any secret.
type JWKSHandler struct {
	keySet JWKS
}

// NewJWKSHandler builds the key set once at startup; the signing key does
// not change while the process runs.
func NewJWKSHandler(publicKey *rsa.PublicKey) *JWKSHandler {
	exponent := make([]byte, 8)
	binary.BigEndian.PutUint64(exponent, uint64(publicKey.E))
	// Trim leading zero bytes from the exponent.
	i := 0
	for i < len(exponent)-1 && exponent[i] == 0 {
		i++
	}
	exponent = exponent[i:]

	modulus := publicKey.N.Bytes()
	kid := sha256.Sum256(modulus)

	return &JWKSHandler{
		keySet: JWKS{
			Keys: []JWK{{
				KeyType:   "RSA",
				Use:       "sig",
				Algorithm: "RS256",
				KeyID:     base64.RawURLEncoding.EncodeToString(kid[:8]),
				Modulus:   base64.RawURLEncoding.EncodeToString(modulus),
				Exponent:  base64.RawURLEncoding.EncodeToString(exponent),
			}},
		},
	}
}

// Serve handles GET /.well-known/jwks.json.
func (h *JWKSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	httputil.WriteJSON(w, http.StatusOK, h.keySet)
}
