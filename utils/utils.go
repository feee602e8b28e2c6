package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateDashlessUUID creates a new UUID v4 and returns its string representation
// with all dashes removed.
func GenerateDashlessUUID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")
}

// APIError is a standard structure for returning errors as JSON.
// Code carries the machine-readable error class when one applies.
type APIError struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// GinError sends a JSON error response with a specific status code.
// It logs the error server-side as well.
func GinError(c *gin.Context, statusCode int, message string) {
	GinErrorCode(c, statusCode, "", message)
}

// GinErrorCode is GinError with an error code in the body.
func GinErrorCode(c *gin.Context, statusCode int, code, message string) {
	GinErrorBody(c, statusCode, APIError{Error: message, Code: code})
}

// GinErrorBody sends body as the error response.
func GinErrorBody(c *gin.Context, statusCode int, body APIError) {
	event := log.Warn()
	if statusCode >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", statusCode).
		Str("code", body.Code).
		Msg(body.Error)
	c.AbortWithStatusJSON(statusCode, body)
}

// GinBadRequest sends a 400 Bad Request error response.
func GinBadRequest(c *gin.Context, message string) {
	GinErrorCode(c, http.StatusBadRequest, "validation", message)
}

// GinUnauthorized sends a 401 Unauthorized error response.
func GinUnauthorized(c *gin.Context, message string) {
	GinErrorCode(c, http.StatusUnauthorized, "unauthorized", message)
}

// GinForbidden sends a 403 Forbidden error response.
func GinForbidden(c *gin.Context, message string) {
	GinErrorCode(c, http.StatusForbidden, "forbidden", message)
}

// GinNotFound sends a 404 Not Found error response.
func GinNotFound(c *gin.Context, message string) {
	GinErrorCode(c, http.StatusNotFound, "not_found", message)
}

// GinInternalServerError sends a 500 Internal Server Error response.
func GinInternalServerError(c *gin.Context, message string) {
	GinErrorCode(c, http.StatusInternalServerError, "internal", message)
}
