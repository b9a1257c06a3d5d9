package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/gin-gonic/gin"
)

// clientIDKey holds the authenticated client id in the gin context.
const clientIDKey = "client_id"

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abortWithError(c, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		clientID, err := s.auth.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			s.fail(c, err)
			return
		}

		c.Set(clientIDKey, clientID)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_id", c.GetString(clientIDKey),
			"duration", time.Since(start))
	}
}
