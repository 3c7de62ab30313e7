package server

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/milkseller/pkg/calendar"
)

// parsePeriod reads start_date and end_date. Missing bounds default to the
// current month in the business time zone.
func (s *Server) parsePeriod(c *gin.Context) (civil.Date, civil.Date, error) {
	today := s.today()
	monthStart, monthEnd := calendar.MonthRange(today.Year, today.Month)

	start := monthStart
	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		d, err := parseDateField("start_date", raw)
		if err != nil {
			return civil.Date{}, civil.Date{}, err
		}
		start = d
	}

	end := monthEnd
	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		d, err := parseDateField("end_date", raw)
		if err != nil {
			return civil.Date{}, civil.Date{}, err
		}
		end = d
	}

	return start, end, nil
}

func userIDParam(c *gin.Context) (string, error) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		return "", newValidationError("user_id", "invalid_user_id", "user_id is required")
	}
	return userID, nil
}

func (s *Server) today() civil.Date {
	return calendar.Today(s.clock, s.cfg.Location())
}
