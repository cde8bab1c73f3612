// README: Firebase bearer-token auth middleware; stores caller uid/role in the gin context.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"skyplan/internal/infra"
)

const (
	ctxUID   = "auth.uid"
	ctxRole  = "auth.role"
	ctxToken = "auth.token"
)

// Auth rejects requests without a valid Firebase ID token.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, verifier) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// OptionalAuth identifies the caller when a bearer token is sent and lets
// anonymous requests through. A token that fails verification is still rejected.
func OptionalAuth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if !authenticate(c, verifier) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, verifier infra.TokenVerifier) bool {
	if verifier == nil {
		return false
	}
	raw, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		return false
	}
	token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
	if err != nil || token == nil || token.UID == "" {
		return false
	}
	c.Set(ctxUID, token.UID)
	c.Set(ctxRole, token.Role())
	c.Set(ctxToken, raw)
	return true
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// CallerUID returns the verified uid, or "" for anonymous requests.
func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

// CallerRole returns the "role" custom claim of the caller, if any.
func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// CallerToken returns the raw bearer token that authenticated the request.
func CallerToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}
