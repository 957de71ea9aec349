package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sonoralabs/sonora/internal/domain"
)

const errUnauthorized = "Unauthorized"

const principalKey = "principal"

// SessionParser is the slice of the session bridge the middleware needs.
type SessionParser interface {
	ParseSession(raw string) (domain.Principal, error)
}

// Auth validates the Bearer session token and stores the Principal in
// the gin context.
func Auth(sessions SessionParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		principal, err := sessions.ParseSession(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the Principal set by Auth.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
