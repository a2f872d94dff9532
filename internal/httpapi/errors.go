package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"prompt-gateway/internal/usecase"
)

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorPayloadTooLarge:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError is the single place a fault becomes an HTTP response.
func (h *Handler) respondError(c *gin.Context, err error) {
	ue := usecase.AsError(err)
	status := statusFor(ue.Code)

	fields := []zap.Field{
		zap.String("code", string(ue.Code)),
		zap.String("reason", ue.Reason),
		zap.String("path", c.Request.URL.Path),
		zap.String("correlation_id", correlationID(c)),
	}
	if !ue.IsValidation() {
		h.logger.Error("request failed", append(fields, zap.Error(err))...)
	} else {
		h.logger.Info("request rejected", fields...)
	}

	c.JSON(status, errorResponse{Error: string(ue.Code), Detail: ue.Detail()})
}
