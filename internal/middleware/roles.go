package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
)

// RequireRole lets through users UserAuth resolved to one of the allowed
// roles. It must run after UserAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthorized(c, "No token provided, access denied")
			return
		}

		match := false
		for _, r := range allowedRoles {
			if user.Role == r {
				match = true
				break
			}
		}
		if !match {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Admin access required"})
			return
		}
		c.Next()
	}
}

func AdminAuth() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
