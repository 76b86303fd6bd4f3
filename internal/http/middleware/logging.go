// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides request correlation, caller identity extraction,
// structured access logging and panic recovery:
//
//   - RequestID() reuses or generates the X-Request-ID correlation id.
//   - Identity() reads the requester, guild, channel and role headers set by
//     the chat front end and stores them in the Gin context.
//   - Logger() emits one access log per request and attaches a request-scoped
//     zerolog.Logger that handlers retrieve with LoggerFrom().
//   - Recovery() turns panics into the JSON 500 envelope.
//
// Recommended order: RequestID, Identity, Logger (or RedactingLogger), Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"

	// Identity headers forwarded by the chat front end.
	HeaderUserID    = "X-User-ID"
	HeaderGuildID   = "X-Guild-ID"
	HeaderChannelID = "X-Channel-ID"
	HeaderUserRoles = "X-User-Roles"

	// Gin context keys written by Identity.
	CtxUserID    = "userID"
	CtxGuildID   = "guildID"
	CtxChannelID = "channelID"
	CtxRoles     = "roles"

	loggerKey         = "logger"
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated. The id
// is echoed on the response and stored under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Identity copies the caller identity headers into the Gin context. Empty
// headers are not stored. Roles are a comma separated list of role ids.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if v := strings.TrimSpace(c.GetHeader(HeaderUserID)); v != "" {
			c.Set(CtxUserID, v)
		}
		if v := strings.TrimSpace(c.GetHeader(HeaderGuildID)); v != "" {
			c.Set(CtxGuildID, v)
		}
		if v := strings.TrimSpace(c.GetHeader(HeaderChannelID)); v != "" {
			c.Set(CtxChannelID, v)
		}
		if roles := splitRoles(c.GetHeader(HeaderUserRoles)); len(roles) > 0 {
			c.Set(CtxRoles, roles)
		}
		c.Next()
	}
}

// Logger writes a structured access log for each request and stores a
// request-scoped logger (with request and requester ids) in the context.
// 5xx and recorded Gin errors log at error, 4xx at warn, the rest at info.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := scopedLogger(c, truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		c.Set(loggerKey, &l)

		c.Next()

		ev := l.With().
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch status := c.Writer.Status(); {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// scopedLogger builds the per-request logger. query is logged as given.
func scopedLogger(c *gin.Context, query string) zerolog.Logger {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return log.With().
		Str("request_id", c.GetString(requestIDKey)).
		Str("requester_id", c.GetString(CtxUserID)).
		Str("method", c.Request.Method).
		Str("path", path).
		Str("remote_ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Str("query", query).
		Int64("bytes_in", c.Request.ContentLength).
		Logger()
}

// Recovery intercepts panics, logs the stack with the request id and, when
// nothing was written yet, responds with the internal_error envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := c.GetString(requestIDKey)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or a fallback derived from the
// global logger when Logger()/RedactingLogger() did not run. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// truncate caps s at max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
