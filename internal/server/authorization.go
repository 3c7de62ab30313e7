package server

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if err := s.authzSvc.Authorize(c.Request.Context(), principal.KeyID, principal.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}

		c.Next()
	}
}
