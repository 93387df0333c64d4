package auth

import (
	"time"
)

// TestSecret is the signing key used by NewTestJWTService.
const TestSecret = "test-jwt-secret-that-is-32-chars-long"

// NewTestJWTService creates a JWT service signing with secret whose clock is timeFunc.
// A nil timeFunc uses time.Now.
func NewTestJWTService(secret string, lifetime time.Duration, timeFunc func() time.Time) JWTService {
	if timeFunc == nil {
		timeFunc = time.Now
	}
	return newJWTService(secret, lifetime, timeFunc)
}
