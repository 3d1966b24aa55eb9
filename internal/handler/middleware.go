package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley/internal/auth"
	pkglog "github.com/parleychat/parley/pkg/log"
	"github.com/parleychat/parley/pkg/response"
)

// Context keys set by RequireAuth.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
)

// RequireAuth returns a Gin middleware that validates bearer tokens with
// the same verifier the websocket handshake uses.
func RequireAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := verifier.Verify(auth.TokenFromRequest(c.Request))
		if err != nil {
			response.Unauthorized(c, "Invalid or missing token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Set(pkglog.FieldUserID, claims.UserID)
		c.Next()
	}
}
