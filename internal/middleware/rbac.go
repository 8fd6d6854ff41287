package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/classsync/classsync-api/internal/models"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

// RequireRoles must run after JWT. Unauthenticated requests get 401, wrong
// roles 403.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			abort(c, appErrors.ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		abort(c, appErrors.Clone(appErrors.ErrForbidden, "requires role "+joinRoles(roles)))
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

func joinRoles(roles []models.UserRole) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += " or "
		}
		out += string(r)
	}
	return out
}
