package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/leadpilot/outreach-backend/pkg/auth"
	"github.com/leadpilot/outreach-backend/pkg/errors"
)

const PrincipalKey = "principal"

// AuthMiddleware resolves the caller to a Principal exactly once.
// Humans authenticate with a bearer JWT; the desktop sender with the
// static service token. Handlers read the Principal from the context
// and never touch tokens themselves.
func AuthMiddleware(jwtSecret, serviceToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errors.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || strings.ToLower(bearerToken[0]) != "bearer" {
			errors.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		tokenString := bearerToken[1]

		if serviceToken != "" && subtle.ConstantTimeCompare([]byte(tokenString), []byte(serviceToken)) == 1 {
			setPrincipal(c, auth.ServicePrincipal())
			c.Next()
			return
		}

		claims, err := auth.ParseToken(tokenString, jwtSecret)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		setPrincipal(c, auth.PrincipalFromClaims(claims))
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(PrincipalKey, p)
	// Legacy keys kept for logging and audit middleware
	c.Set("user_id", p.UserID)
	c.Set("user_email", p.Email)
	c.Set("user_role", string(p.Kind))
}

// GetPrincipal returns the Principal resolved by AuthMiddleware.
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

// RequireKinds rejects callers whose Principal kind is not listed.
func RequireKinds(kinds ...auth.PrincipalKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			errors.Forbidden(c, "principal not resolved")
			c.Abort()
			return
		}

		for _, kind := range kinds {
			if p.Kind == kind {
				c.Next()
				return
			}
		}

		errors.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireKinds(auth.KindAdmin)
}

func RequireService() gin.HandlerFunc {
	return RequireKinds(auth.KindService)
}
