package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/haninge-digit/digit-camunda-wrapper/internal/api/shared"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/platform/logger"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/redact"
	"github.com/haninge-digit/digit-camunda-wrapper/internal/service/auth"
)

// unauthorized is the only message a rejected caller ever sees.
const unauthorized = "Unauthorized"

// tokenSchemes are the accepted Authorization header schemes.
var tokenSchemes = []string{"Bearer", "Token"}

// AuthMiddleware provides JWT authentication for routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
	disabled   bool
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
// A disabled middleware lets every request through.
func NewAuthMiddleware(jwtService auth.JWTService, disabled bool) *AuthMiddleware {
	if jwtService == nil && !disabled {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("jwtService cannot be nil for an enabled AuthMiddleware")
	}
	return &AuthMiddleware{
		jwtService: jwtService,
		disabled:   disabled,
	}
}

// Authenticate validates the token in the Authorization header. Every failure
// is answered with the same 401; the reason only goes to the log.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		log := logger.FromContext(r.Context())

		token, ok := extractToken(r.Header.Get("Authorization"))
		if !ok {
			log.Debug("request rejected: missing or malformed authorization header",
				"path", r.URL.Path)
			shared.RespondWithError(w, r, http.StatusUnauthorized, unauthorized)
			return
		}

		claims, err := m.jwtService.ValidateToken(r.Context(), token)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, unauthorized,
				errorWithReason{err: err})
			return
		}

		ctx := context.WithValue(r.Context(), shared.ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaims returns the claims of the verified token, if any.
func GetClaims(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(shared.ClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

func extractToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for _, s := range tokenSchemes {
		if strings.EqualFold(scheme, s) {
			return token, true
		}
	}
	return "", false
}

// errorWithReason keeps token material out of the log line.
type errorWithReason struct {
	err error
}

func (e errorWithReason) Error() string {
	return "token rejected: " + redact.String(e.err.Error())
}

func (e errorWithReason) Unwrap() error {
	return e.err
}
