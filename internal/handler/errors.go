package handler

import (
	"errors"
	"net/http"

	"posbackend/internal/service"
	"posbackend/pkg/response"

	"github.com/gin-gonic/gin"
)

// statusFor maps a settlement error onto its HTTP status.
func statusFor(se *service.SettlementError) int {
	switch se.Kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindApproval:
		return http.StatusForbidden
	case service.KindRateLimit:
		return http.StatusTooManyRequests
	case service.KindContention:
		if errors.Is(se, service.ErrLockWaitTimeout) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err in the response envelope. Internal causes never reach the client.
func respondError(c *gin.Context, err error) {
	var se *service.SettlementError
	if !errors.As(err, &se) {
		se = service.ErrInternal
	}
	status := statusFor(se)

	var details interface{}
	if len(se.Data) > 0 {
		details = se.Data
	}
	message := se.Message
	if status == http.StatusInternalServerError {
		message = service.ErrInternal.Message
		details = nil
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, response.ErrorWithCode(status, se.Code, message, details))
}

func respondBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, response.ErrorWithCode(
		http.StatusBadRequest, service.ErrValidation.Code, "Invalid request payload: "+err.Error(), nil))
}
