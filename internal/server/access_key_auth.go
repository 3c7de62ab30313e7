package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	accesskeydomain "github.com/smallbiznis/milkseller/internal/accesskey/domain"
	obscontext "github.com/smallbiznis/milkseller/internal/observability/context"
)

const (
	contextPrincipalKey = "access_key.principal"
	actorTypeAccessKey  = "access_key"
)

// AccessKeyRequired authenticates `Authorization: Bearer <key_id>.<secret>`.
func (s *Server) AccessKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.accessKeySvc.Verify(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextPrincipalKey, principal)
		ctx := obscontext.WithActor(c.Request.Context(), actorTypeAccessKey, principal.KeyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func principalFromContext(c *gin.Context) (*accesskeydomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return nil, false
	}
	principal, ok := value.(*accesskeydomain.Principal)
	return principal, ok && principal != nil
}
