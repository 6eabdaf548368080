package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/session"
)

const sessionContextKey = "httpapi.session"

// Sessions binds each request to its server-side session. A visitor without
// a session cookie gets a fresh identifier set on the response.
func Sessions(store session.Store, cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookieName)
		if err != nil || sid == "" {
			sid, err = session.NewSessionID()
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
			c.SetCookie(cookieName, sid, int(ttl.Seconds()), "/", "", false, true)
		}
		c.Set(sessionContextKey, session.New(store, sid))
		c.Next()
	}
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionContextKey).(*session.Session)
}

// AccessLog records one line per request. Static asset and icon requests
// are noise and skipped.
func AccessLog(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/assets") || strings.HasSuffix(path, ".ico") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		log.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
