package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"speech-backend/internal/api/errors"
)

// ErrorHandler recovers panics into a generic internal error response
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		apiErr, ok := recovered.(*errors.APIError)
		if !ok {
			logger.Error("Recovered from panic",
				zap.String("recovered", fmt.Sprint(recovered)),
				zap.String("request_id", requestID),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
			)
			apiErr = errors.NewInternalError("Internal server error")
		}
		apiErr.RequestID = requestID

		c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
	})
}

// HandleError writes err as a structured API error response. Pipeline
// errors are mapped by kind; anything else becomes an internal error.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	apiErr := errors.FromPipeline(err)
	apiErr.RequestID = GetRequestID(c)
	_ = c.Error(err)
	c.AbortWithStatusJSON(apiErr.HTTPStatus(), apiErr)
}
