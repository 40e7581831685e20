package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/minesafe-compliance/internal/domain/aggregates"
	"github.com/yungbote/minesafe-compliance/internal/platform/apierr"
)

// StatusForCode maps aggregate error codes onto HTTP statuses.
func StatusForCode(code domainagg.ErrorCode) int {
	switch code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest
	case domainagg.CodeNotFound:
		return http.StatusNotFound
	case domainagg.CodeConflict:
		return http.StatusConflict
	case domainagg.CodeInvariantViolation, domainagg.CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondServiceError renders err from an aggregate or service call. Internal
// failures are reported with a generic message.
func RespondServiceError(c *gin.Context, fallback string, err error) {
	if ae, ok := apierr.As(err); ok {
		RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		status := StatusForCode(aggErr.Code)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
			RespondError(c, status, string(aggErr.Code), errors.New(fallback))
			return
		}
		msg := aggErr.Message
		if msg == "" {
			msg = fallback
		}
		RespondError(c, status, string(aggErr.Code), errors.New(msg))
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, "internal", errors.New(fallback))
}
