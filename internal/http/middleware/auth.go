package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/minesafe-compliance/internal/domain/user"
	"github.com/yungbote/minesafe-compliance/internal/http/response"
	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
	"github.com/yungbote/minesafe-compliance/internal/platform/logger"
)

// TokenParser turns a bearer token into the caller it identifies.
type TokenParser interface {
	ParseToken(tokenString string) (*ctxutil.RequestData, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	tokens TokenParser
}

func NewAuthMiddleware(log *logger.Logger, tokens TokenParser) *AuthMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		rd, err := am.tokens.ParseToken(tokenString)
		if err != nil {
			am.log.Debug("Rejected token", "error", err)
			response.AbortWithError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		if rd == nil || rd.UserID == uuid.Nil {
			response.AbortWithError(c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Next()
	}
}

// RequireRoles must run after RequireAuth.
func (am *AuthMiddleware) RequireRoles(roles ...user.Role) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			response.AbortWithError(c, http.StatusUnauthorized, "unauthorized", nil)
			return
		}
		if !allowed[rd.Role] {
			response.AbortWithError(c, http.StatusForbidden, "forbidden", errors.New("role not permitted for this resource"))
			return
		}
		c.Next()
	}
}

// EventSource cannot set headers, so streams pass the token as a query param.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
