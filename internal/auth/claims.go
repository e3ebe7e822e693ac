// Package auth resolves the acting-user identity for audit attribution.
// Authorization itself is enforced by the calling layer before requests
// reach this service; nothing here grants or denies access to data.
package auth

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ActorFromBearer extracts the subject claim from a bearer token issued by
// the surrounding admin app. The shared signing secret comes from
// JWT_SECRET.
func ActorFromBearer(authHeader string) (string, error) {
	raw := strings.TrimPrefix(authHeader, "Bearer ")
	if raw == authHeader || raw == "" {
		return "", fmt.Errorf("missing bearer token")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("JWT_SECRET is not configured")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}
