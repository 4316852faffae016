package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuthorizer validates admin bearer tokens.
type TokenAuthorizer interface {
	Authorize(token string) error
}

// AdminAuth rejects requests without a valid admin bearer token. The token
// may also arrive in the admin_auth cookie.
func AdminAuth(auth TokenAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimSpace(h[7:])
		}
		if token == "" {
			if cookie, err := c.Cookie("admin_auth"); err == nil {
				token = cookie
			}
		}

		if token == "" || auth.Authorize(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
