package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "session_id"

const contextKeyUserID = "user_id"

// UserIDFromContext returns the current user ID set by RequireSession. "" if not set.
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// RequireSession returns a middleware that checks for a valid session cookie
// and sets the current user ID in context. If missing or invalid, responds with 401.
func RequireSession(sessions *Store) gin.HandlerFunc {
	return requireSession(sessions, func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
	})
}

// RequireSessionOrRedirect is RequireSession for browser pages: it sends
// visitors without a session to target instead of answering 401.
func RequireSessionOrRedirect(sessions *Store, target string) gin.HandlerFunc {
	return requireSession(sessions, func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, target)
		c.Abort()
	})
}

func requireSession(sessions *Store, deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(SessionCookieName)
		if err != nil || sessionID == "" {
			deny(c)
			return
		}
		userID, ok := sessions.GetUserID(c.Request.Context(), sessionID)
		if !ok {
			deny(c)
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}
