package config

import (
	"log/slog"
	"os"
)

var JwtKey []byte

// InitJWT loads the HMAC signing key for session tokens.
func InitJWT() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("JWT_SECRET environment variable is not set")
		os.Exit(1)
	}
	JwtKey = []byte(secret)
}
