package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	obscontext "github.com/smallbiznis/milkseller/internal/observability/context"
	"github.com/smallbiznis/milkseller/internal/statement"
)

type renderFunc func(ctx context.Context, s statement.Statement) ([]byte, error)

func (s *Server) StatementPDF(c *gin.Context) {
	s.renderStatement(c, statement.PDF, statement.ContentTypePDF, "pdf")
}

func (s *Server) StatementXLSX(c *gin.Context) {
	s.renderStatement(c, statement.XLSX, statement.ContentTypeXLSX, "xlsx")
}

func (s *Server) renderStatement(c *gin.Context, render renderFunc, contentType, ext string) {
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
	snapshot, err := s.statementSource(ctx, userID, start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc := statement.New(
		s.cfg.SellerName,
		statement.Customer{
			ID:    snapshot.Customer.ID,
			Name:  snapshot.Customer.Name,
			Phone: snapshot.Customer.Phone,
		},
		snapshot.MilkType,
		snapshot.Breakdown,
		s.clock.Now(),
	)

	body, err := render(ctx, doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName(ext)))
	c.Header("X-Statement-Number", doc.Number)
	c.Data(http.StatusOK, contentType, body)
}

// statementSource prefers the stored snapshot and computes one when the period has none.
func (s *Server) statementSource(ctx context.Context, userID string, start, end civil.Date) (*billingdomain.Snapshot, error) {
	snapshot, err := s.billingSvc.LatestSnapshot(ctx, userID, start, end)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, billingdomain.ErrSnapshotNotFound) {
		return nil, err
	}

	result, err := s.billingSvc.Breakdown(ctx, billingdomain.BreakdownRequest{
		UserID: userID,
		Start:  start,
		End:    end,
	})
	if err != nil {
		return nil, err
	}
	return &billingdomain.Snapshot{
		ID:        result.Snapshot.ID,
		Customer:  result.Customer,
		MilkType:  result.MilkType,
		Breakdown: result.Breakdown,
		Checksum:  result.Snapshot.Checksum,
	}, nil
}
