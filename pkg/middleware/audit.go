package middleware

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/docgate/docgate/internal/audit"
	"github.com/docgate/docgate/internal/identity"
	"github.com/docgate/docgate/pkg/logger"
	"github.com/docgate/docgate/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AuditOptions tunes the audit middleware.
type AuditOptions struct {
	// BodyLimit caps how many request-body bytes are captured per record.
	BodyLimit int64
	// WriteTimeout bounds the background persistence attempt.
	WriteTimeout time.Duration
}

// throttles failure logging so a dead audit sink cannot flood the log
var auditFailureLog = rate.NewLimiter(rate.Every(10*time.Second), 3)

// AuditMiddleware records exactly one audit entry per completed request.
// The record is assembled after the handler has written the response and
// persisted in a background goroutine, so the client is never delayed and
// never sees an audit failure. Whether rejected requests are audited is
// decided by where the middleware sits relative to AuthMiddleware.
func AuditMiddleware(rec audit.Recorder, opts AuditOptions) gin.HandlerFunc {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 16 << 10
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return func(c *gin.Context) {
		start := time.Now()

		// snapshot the request body and hand the handler an untouched reader
		var body string
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			b, err := io.ReadAll(io.LimitReader(c.Request.Body, opts.BodyLimit))
			if err == nil {
				body = string(b)
				c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), c.Request.Body))
			}
		}

		c.Next()

		// response is fully written here; everything below is off the client path
		id := identity.FromContext(c)
		var params map[string]string
		if len(c.Params) > 0 {
			params = make(map[string]string, len(c.Params))
			for _, p := range c.Params {
				params[p.Key] = p.Value
			}
		}
		r := &audit.Record{
			Username:   id.AuditName(),
			Email:      id.Email,
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Params:     params,
			Query:      c.Request.URL.RawQuery,
			Body:       body,
			StatusCode: c.Writer.Status(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			CreatedAt:  time.Now().UTC(),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), opts.WriteTimeout)
			defer cancel()
			if err := rec.Record(ctx, r); err != nil {
				metrics.AuditFailures.Inc()
				if auditFailureLog.Allow() {
					logger.Errorf("audit write failed (%s %s): %v", r.Method, r.Path, err)
				}
				return
			}
			metrics.AuditRecords.Inc()
		}()
	}
}
