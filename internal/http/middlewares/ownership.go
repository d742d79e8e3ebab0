package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireSelf only admits callers acting on their own account, identified
// by the named path parameter. Must run after RequireAuth.
func (m *AuthMiddleware) RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserIDFromContext(c)
		if !ok {
			unauthenticated(c)
			return
		}

		if c.Param(param) != userID {
			m.log.WarnContext(c.Request.Context(), "ownership check failed",
				"user_id", userID,
				"target_id", c.Param(param),
			)
			abortWithError(c, http.StatusForbidden, "forbidden", "You can only modify your own account")
			return
		}
		c.Next()
	}
}
