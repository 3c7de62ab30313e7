package server

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/milkseller/internal/observability/logger"
	"go.uber.org/zap"
)

const rateLimitReasonHeader = "X-Rate-Limited-Reason"

// UpstreamRateLimit throttles routes that call the MilkSeller API, one bucket per access key.
// Redis failures let the request through.
func (s *Server) UpstreamRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.limiter.AllowCaller(c.Request.Context(), principal.KeyID)
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("upstream rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if result == nil || result.Allowed {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
		c.Header(rateLimitReasonHeader, "upstream")
		AbortWithError(c, ErrRateLimited)
	}
}

func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
