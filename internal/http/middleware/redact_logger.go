// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger used in production.
// Wallet addresses and transaction hashes link a chat identity to on-chain
// activity, so they are scrubbed from query strings and header values before
// anything is logged. Bodies are never logged.
//
// Usage:
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-Partner-Api-Key"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names whose values are replaced with
// "[REDACTED]". Matching is case-insensitive and merged with the built-in set
// (Authorization, Cookie, Set-Cookie).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	// 0x + 64 hex must be tried before 0x + 40 hex.
	txHashRE  = regexp.MustCompile(`(?i)\b0x[0-9a-f]{64}\b`)
	addressRE = regexp.MustCompile(`(?i)\b0x[0-9a-f]{40}\b`)
	emailRE   = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
)

// redact scrubs hashes, addresses and emails from s.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = txHashRE.ReplaceAllString(s, "[REDACTED:tx]")
	s = addressRE.ReplaceAllString(s, "[REDACTED:address]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// RedactingLogger behaves like Logger (request-scoped logger, level by
// status) and additionally logs scrubbed request headers and query.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		l := scopedLogger(c, truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength))
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		ev.
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
