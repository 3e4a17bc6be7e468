package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-api/auth"
)

// corsMiddleware sets permissive CORS headers and answers preflight
// requests directly.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// bearerMiddleware derives the caller identity from the Authorization
// header. An absent token passes through as anonymous; a present but
// invalid one is rejected here, before any resolver runs.
func (s *Server) bearerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := s.tokens.FromAuthorizationHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		ctx := auth.WithIdentity(c.Request.Context(), identity)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
