// Package handlers implements the dashboard's JSON endpoints.
//
// Every failure uses the ErrorResponse envelope with a stable code from
// errors.go, for example:
//
//	HTTP/1.1 404 Not Found
//	{ "request_id": "1b4e…", "code": "no_streak", "message": "user has no streak in this guild" }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-streak-bot/internal/http/middleware"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	// RequestID echoes X-Request-ID so clients can quote it.
	RequestID string `json:"request_id,omitempty"`
	// Code is a stable, machine-readable code (see errors.go).
	Code string `json:"code"`
	// Message is safe to show to users.
	Message string `json:"message"`
}

// fail aborts with the error envelope. 5xx responses are logged through the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for router-level fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes body as JSON.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
