package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/smallbiznis/milkseller/pkg/db/pagination"
)

type listSnapshotsQuery struct {
	pagination.Pagination
}

func (s *Server) ListSnapshots(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var query listSnapshotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be between 0 and 100"))
		return
	}

	resp, err := s.billingSvc.ListSnapshots(c.Request.Context(), billingdomain.ListSnapshotsRequest{
		UserID:     userID,
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Snapshots,
		"page_info": resp.PageInfo,
	})
}

// LatestSnapshot returns the stored breakdown for the period without calling upstream.
func (s *Server) LatestSnapshot(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	start, end, err := s.parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billingSvc.LatestSnapshot(c.Request.Context(), userID, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
