package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/services"
)

const claimsKey = "scopeClaims"

// Auth verifies the bearer scope token and attaches the caller identity and
// granted scopes to the request context.
func Auth(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireScope gates a route on a named capability.
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil || !claims.HasScope(scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient scope"})
			return
		}
		c.Next()
	}
}

// Claims returns the verified token claims, or nil outside Auth.
func Claims(c *gin.Context) *services.ScopeClaims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*services.ScopeClaims); ok {
			return claims
		}
	}
	return nil
}

// CurrentUser returns the authenticated caller identity.
func CurrentUser(c *gin.Context) (models.User, bool) {
	claims := Claims(c)
	if claims == nil {
		return models.User{}, false
	}
	return claims.User(), true
}
