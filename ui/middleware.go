package ui

import (
	"kpijoin/ui/middleware"

	"github.com/gin-gonic/gin"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.Use(middleware.LimitBody(s.maxUpload))
	s.router.Use(middleware.EnsureWorkspace(s.sessions, s.cookieName, s.sessionTTL))
}
