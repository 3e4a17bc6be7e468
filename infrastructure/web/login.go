package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-api/auth"
)

// handleLogin exchanges credentials for a bearer token. Failures answer a
// bare 401 with no body detail.
func (s *Server) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.Logins.WithLabelValues("failure").Inc()
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	token, err := s.authService.Login(req.UserID, req.Password)
	if err != nil {
		s.log.Debug("login rejected", "user_id", req.UserID)
		s.metrics.Logins.WithLabelValues("failure").Inc()
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	s.metrics.Logins.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{"token": string(token)})
}
