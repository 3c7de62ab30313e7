package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
)

func (s *Server) ListAccessKeys(c *gin.Context) {
	resp, err := s.accessKeySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CreateAccessKey returns the token once. Only its hash is stored.
func (s *Server) CreateAccessKey(c *gin.Context) {
	var req accesskeydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.accessKeySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) RevokeAccessKey(c *gin.Context) {
	keyID := strings.TrimSpace(c.Param("key_id"))

	if err := s.accessKeySvc.Revoke(c.Request.Context(), keyID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"key_id": keyID, "revoked": true}})
}
