package middleware

import (
	"net/http"

	"control-acceso/internal/auth"
	"control-acceso/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session"
	roleKey    = "role"
)

// Session binds the session store to the request.
func Session(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, store.Context(c.Writer, c.Request))
		c.Next()
	}
}

// CurrentSession returns the request's session context set by Session.
func CurrentSession(c *gin.Context) *session.Context {
	v, exists := c.Get(sessionKey)
	if !exists {
		return nil
	}
	sc, _ := v.(*session.Context)
	return sc
}

// RequireRole lets the request through only when the stored session's role
// is one of roles. Everyone else is sent back to the login page.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *auth.Session
		if sc := CurrentSession(c); sc != nil {
			sess, _ = sc.Get()
		}

		decision := auth.Authorize(roles, sess)
		if !decision.Admit {
			c.Redirect(http.StatusFound, decision.RedirectPath)
			c.Abort()
			return
		}

		c.Set(roleKey, sess.Role)
		c.Next()
	}
}

// CurrentRole returns the role admitted by RequireRole.
func CurrentRole(c *gin.Context) auth.Role {
	v, _ := c.Get(roleKey)
	role, _ := v.(auth.Role)
	return role
}
