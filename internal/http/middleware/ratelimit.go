package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	limiterGin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/yungbote/minesafe-compliance/internal/platform/ctxutil"
)

// RateLimit throttles with a formatted rate such as "120-M". Authenticated
// callers are keyed by user id, anonymous ones by client IP.
func RateLimit(formatted string) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", formatted, err)
	}
	instance := limiter.New(memory.NewStore(), rate)
	return limiterGin.NewMiddleware(instance, limiterGin.WithKeyGetter(callerKey)), nil
}

func callerKey(c *gin.Context) string {
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		return "user:" + rd.UserID.String()
	}
	return "ip:" + c.ClientIP()
}
