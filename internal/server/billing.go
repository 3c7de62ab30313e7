package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	obscontext "github.com/smallbiznis/milkseller/internal/observability/context"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
)

// ComputeBreakdown builds a breakdown from caller-supplied history and deliveries.
// Nothing is stored.
func (s *Server) ComputeBreakdown(c *gin.Context) {
	var req breakdownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := validateRequest(req); err != nil {
		AbortWithError(c, err)
		return
	}

	start, err := parseDateField("start_date", req.StartDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	end, err := parseDateField("end_date", req.EndDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	history, err := historyToDomain(req.History)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	deliveries, err := deliveriesToDomain(req.Deliveries)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.billingSvc.Compute(c.Request.Context(), billingdomain.ComputeRequest{
		History:    history,
		Deliveries: deliveries,
		Start:      start,
		End:        end,
		MilkType:   ratedomain.MilkType(req.MilkType),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CustomerBilling fetches the customer's ledger upstream and stores the result as a snapshot.
func (s *Server) CustomerBilling(c *gin.Context) {
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

	ctx := obscontext.WithCustomerID(c.Request.Context(), userID)
	resp, err := s.billingSvc.Breakdown(ctx, billingdomain.BreakdownRequest{
		UserID: userID,
		Start:  start,
		End:    end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
