package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"delivery/internal/domain"
	"delivery/internal/gateway"
)

const identityKey = "identity"

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (domain.Identity, error)
}

// Authenticate verifies the bearer token with the auth service and stores
// the caller's identity on the context.
func Authenticate(verifier TokenVerifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Unauthenticated", "authorization token required")
			return
		}

		// A caller that cannot be verified is unauthenticated, whatever the
		// reason the auth service gave.
		identity, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, gateway.ErrUnauthenticated) {
				log.WithError(err).Warn("token verification failed")
			}
			abortWithError(c, http.StatusUnauthorized, "Unauthenticated", "invalid or expired token")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, "Unauthenticated", "authorization token required")
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, "Forbidden", "insufficient permissions")
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func abortWithError(c *gin.Context, code int, kind, message string) {
	c.AbortWithStatusJSON(code, gin.H{"kind": kind, "error": message})
}
