package respond

import (
	"github.com/gin-gonic/gin"

	"filegate/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	logError(c, status, map[string]any{
		"code":    code,
		"message": message,
	})

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// TextError sends a plain-text error message and logs the underlying cause.
func TextError(c *gin.Context, status int, message string, cause error) {
	fields := map[string]any{"message": message}
	if cause != nil {
		fields["err"] = cause
	}
	logError(c, status, fields)

	c.Abort()
	c.String(status, message)
}

func logError(c *gin.Context, status int, fields map[string]any) {
	fields["status"] = status
	fields["path"] = c.Request.URL.Path
	fields["method"] = c.Request.Method
	fields["request_id"] = c.GetString("requestId")
	if userName := c.GetString("userName"); userName != "" {
		fields["user_name"] = userName
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
		return
	}
	telemetry.Warn("http.error", fields)
}
