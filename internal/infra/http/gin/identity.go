package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/reservations"
)

const principalContextKey = "staybook.principal"

// principal is the identity the upstream auth layer asserts via trusted
// headers. Token issuance and validation happen there, not here.
type principal struct {
	ID   string
	Role reservations.Role
}

func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if id == "" {
			c.Next()
			return
		}
		role := reservations.Role(strings.ToLower(strings.TrimSpace(c.GetHeader("X-User-Role"))))
		switch role {
		case reservations.RoleGuest, reservations.RoleHost, reservations.RoleAdmin:
		default:
			role = reservations.RoleGuest
		}
		c.Set(principalContextKey, principal{ID: id, Role: role})
		c.Next()
	}
}

func requireIdentity(c *gin.Context) (principal, bool) {
	v, ok := c.Get(principalContextKey)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return principal{}, false
	}
	p, ok := v.(principal)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return principal{}, false
	}
	return p, true
}
