// Package handlers provides HTTP handler implementations for the faucet API.
//
// This file defines the response helpers shared by all endpoints. Every
// failure is returned as an ErrorResponse with a stable code so the chat
// front end can branch on it and show Message verbatim.
//
// Example error response:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 3600
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "cooldown_active",
//	  "message": "Cooldown. Next available: Mon, 02 Jan 2006 15:04:05 UTC"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-faucet-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"invalid_address"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"Invalid EVM address."`
}

// fail aborts the request with a structured error. 5xx responses are logged
// with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for router-level handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
