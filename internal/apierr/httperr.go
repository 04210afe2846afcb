package apierr

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/kcchat/server/internal/logger"
)

// Response is the JSON body returned by every REST error helper.
type Response struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Unauthorized responds 401.
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "authentication required"
	}
	c.JSON(http.StatusUnauthorized, Response{Error: "unauthorized", Message: message})
}

// BadRequest responds 400.
func BadRequest(c *gin.Context, message string) {
	if message == "" {
		message = "invalid request"
	}
	c.JSON(http.StatusBadRequest, Response{Error: "bad_request", Message: message})
}

// Conflict responds 409.
func Conflict(c *gin.Context, message string) {
	if message == "" {
		message = "resource conflict"
	}
	c.JSON(http.StatusConflict, Response{Error: "conflict", Message: message})
}

// TooManyRequests responds 429.
func TooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, Response{Error: "too_many_requests", Message: "rate limit exceeded"})
}

// InternalError logs err once (classified) and responds 500 with a
// sanitized message — callers must not also call logger.ErrorErr.
func InternalError(c *gin.Context, message string, err error) {
	if message == "" {
		message = "an error occurred"
	}

	info := Classify(err)
	logger.ErrorErr(err, message,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
		"error_category", info.Category,
	)

	c.JSON(http.StatusInternalServerError, Response{
		Error:   "server_error",
		Message: message,
		Details: info.Sanitized,
	})
}
