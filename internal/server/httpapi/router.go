package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/elegance/identity-provider/internal/logging"
	"github.com/elegance/identity-provider/internal/server/session"
)

// NewRouter assembles the HTTP surface: recovery, access logging, session
// binding and the identity endpoints.
func NewRouter(identity IdentityService, store session.Store, cookieName string, ttl time.Duration, log logging.Logger) *gin.Engine {
	h := NewHandler(identity, log)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(AccessLog(log))
	r.Use(Sessions(store, cookieName, ttl))

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/register", h.register)
		v1.POST("/login", h.login)
		v1.POST("/logout", h.logout)
		v1.GET("/me", h.me)
	}

	return r
}
