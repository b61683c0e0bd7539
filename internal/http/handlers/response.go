// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response helpers shared by every endpoint. All error
// responses use ErrorResponse so clients can branch on `code` and quote
// `request_id` when reporting problems; `error` carries the user-facing text
// (Chinese for the account routes, where it is shown verbatim in the UI).
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "error": "Task not found",
//	  "code": "not_found",
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/designai/studio-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Human-readable message (safe to show to users)
	Error string `json:"error" example:"Task not found"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
}

// fail aborts the request with a structured error. 5xx responses are logged
// with the request-scoped logger; cause, when non-nil, is logged but never
// sent to the client.
func fail(c *gin.Context, status int, code, msg string, cause ...error) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: middleware.RequestIDFrom(c),
	}

	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg)
		if len(cause) > 0 && cause[0] != nil {
			ev = ev.Err(cause[0])
			_ = c.Error(cause[0])
		}
		ev.Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail for router-level middleware.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// notModified writes a bare 304.
func notModified(c *gin.Context) {
	c.Status(http.StatusNotModified)
}
