package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/store-api/internal/user"
)

const (
	userIDKey  = "user_id"
	isAdminKey = "is_admin"
)

// Authenticator resolves credentials to a user; *user.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
}

// Auth requires HTTP Basic credentials (email:password) and stores the caller in the context.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="store"`)
			Abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		u, err := a.Authenticate(c.Request.Context(), email, password)
		if errors.Is(err, user.ErrInvalidCredentials) {
			c.Header("WWW-Authenticate", `Basic realm="store"`)
			Abort(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			_ = c.Error(err)
			Abort(c, http.StatusInternalServerError, "authentication failed")
			return
		}
		c.Set(userIDKey, u.ID)
		c.Set(isAdminKey, u.IsAdmin)
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(isAdminKey) {
			Abort(c, http.StatusForbidden, "admin only")
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(userIDKey) }

func IsAdmin(c *gin.Context) bool { return c.GetBool(isAdminKey) }
