package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	pricingdomain "github.com/smallbiznis/milkseller/internal/pricing/domain"
)

func (s *Server) ListPrices(c *gin.Context) {
	resp, err := s.pricingSvc.List(c.Request.Context(), strings.TrimSpace(c.Query("milk_type")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PriceAt defaults date to today in the business time zone.
func (s *Server) PriceAt(c *gin.Context) {
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = s.today().String()
	}

	resp, err := s.pricingSvc.PriceAt(c.Request.Context(), pricingdomain.PriceAtRequest{
		MilkType: strings.TrimSpace(c.Query("milk_type")),
		Date:     date,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreatePrice(c *gin.Context) {
	var req pricingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.pricingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
