package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type rateResponse struct {
	DailyLiters decimal.Decimal `json:"daily_liters"`
}

type currentRateResponse struct {
	DailyLiters   decimal.Decimal `json:"daily_liters"`
	AverageLiters decimal.Decimal `json:"average_liters"`
	AsOf          string          `json:"as_of"`
}

func (s *Server) ResolveRate(c *gin.Context) {
	var req resolveRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := validateRequest(req); err != nil {
		AbortWithError(c, err)
		return
	}

	date, err := parseDateField("date", req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	history, err := historyToDomain(req.History)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := rateResponse{
		DailyLiters: s.rateSvc.ResolveRateForDate(history, date, req.Fallback),
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CurrentRate resolves the rate for today in the business time zone.
func (s *Server) CurrentRate(c *gin.Context) {
	var req currentRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := validateRequest(req); err != nil {
		AbortWithError(c, err)
		return
	}

	history, err := historyToDomain(req.History)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := currentRateResponse{
		DailyLiters:   s.rateSvc.ResolveCurrentRate(history, req.Fallback),
		AverageLiters: s.rateSvc.AverageRate(history),
		AsOf:          s.today().String(),
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
