package auth

import (
	"context"
	"time"
)

// Issuer is written to the iss claim of every token this service signs.
const Issuer = "camunda-wrapper"

// JWTService issues and verifies the bearer tokens that guard the gateway.
type JWTService interface {
	// GenerateToken creates a signed token that expires after the configured lifetime.
	// Returns ErrNoSigningKey when no secret is configured.
	GenerateToken(ctx context.Context) (string, error)

	// ValidateToken verifies the signature and expiry of tokenString and returns its claims.
	// A token without an exp claim is rejected.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the registered claims carried by a gateway token.
type Claims struct {
	Issuer    string    `json:"iss,omitempty"`
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
