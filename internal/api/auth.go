package api

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsledger/opsledger/internal/config"
)

// AuthMiddleware guards the data endpoints. Two credential forms are
// accepted: an operator-issued HS256 bearer token, or a static dashboard
// key checked against a bcrypt hash from the environment. With neither
// configured the API fails closed.
func AuthMiddleware(cfg config.APIConfig) func(http.Handler) http.Handler {
	if cfg.JWTSecret == "" && cfg.APIKeyHash == "" {
		log.Println("WARNING: neither API_JWT_SECRET nor API_KEY_HASH is set; all data requests will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey := r.Header.Get("X-API-Key"); apiKey != "" && cfg.APIKeyHash != "" {
				if bcrypt.CompareHashAndPassword([]byte(cfg.APIKeyHash), []byte(apiKey)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}

			if cfg.JWTSecret != "" {
				authHeader := r.Header.Get("Authorization")
				token := strings.TrimPrefix(authHeader, "Bearer ")
				if token != "" && token != authHeader && validToken(token, cfg.JWTSecret) {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

func validToken(token, secret string) bool {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if t.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing algorithm: %v", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	return err == nil && parsed.Valid
}

// IssueToken mints a dashboard bearer token.
func IssueToken(secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("API_JWT_SECRET is not configured")
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "dashboard",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// GenerateAPIKey returns a fresh random dashboard key and its bcrypt hash.
// The key is shown once; only the hash is stored (in API_KEY_HASH).
func GenerateAPIKey() (key, hash string, err error) {
	raw := make([]byte, 32)
	if _, err = rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}
	key = base64.URLEncoding.EncodeToString(raw)

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash key: %w", err)
	}
	return key, string(hashBytes), nil
}
