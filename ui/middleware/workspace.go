package middleware

import (
	"log"
	"net/http"
	"time"

	"kpijoin/domain/core"
	"kpijoin/internal/session"

	"github.com/gin-gonic/gin"
)

// WorkspaceKey is the gin context key holding the request's *session.Workspace
const WorkspaceKey = "workspace"

// EnsureWorkspace attaches the caller's workspace to the request, creating a
// new one (and a new cookie) when the cookie is absent, malformed or expired.
func EnsureWorkspace(store *session.Store, cookieName string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ws *session.Workspace
		if raw, err := c.Cookie(cookieName); err == nil {
			if id, err := core.ParseSessionID(raw); err == nil {
				ws, _ = store.Touch(id)
			}
		}
		if ws == nil {
			ws, _ = store.GetOrCreate("")
			log.Printf("[EnsureWorkspace] created workspace %s (%d live)", ws.ID().Tag(), store.Len())
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, ws.ID().String(), int(ttl.Seconds()), "/", "", false, true)
		c.Set(WorkspaceKey, ws)
		c.Next()
	}
}

// Workspace returns the workspace attached by EnsureWorkspace
func Workspace(c *gin.Context) *session.Workspace {
	if v, ok := c.Get(WorkspaceKey); ok {
		if ws, ok := v.(*session.Workspace); ok {
			return ws
		}
	}
	return nil
}

// LimitBody caps the request body at maxBytes
func LimitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
