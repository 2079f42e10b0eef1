package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	userNameKey = "userName"
	fileNameKey = "fileName"
)

// SetSubject records which user and file a request targets, for logs and rate limits.
func SetSubject(c *gin.Context, userName, fileName string) {
	if userName != "" {
		c.Set(userNameKey, userName)
	}
	if fileName != "" {
		c.Set(fileNameKey, fileName)
	}
}

// UserNameFromContext returns the subject user, falling back to the :userName route param.
func UserNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v := c.GetString(userNameKey); v != "" {
		return v
	}
	return strings.TrimSpace(c.Param("userName"))
}

// FileNameFromContext returns the subject file, falling back to the :filename route param.
func FileNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	if v := c.GetString(fileNameKey); v != "" {
		return v
	}
	return c.Param("filename")
}
