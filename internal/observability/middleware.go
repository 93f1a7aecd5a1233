package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AccessLog logs each mirror request and records it under node. Artifact
// paths are logged verbatim; the metrics label uses the route pattern so
// per-file paths do not explode label cardinality.
func AccessLog(logger zerolog.Logger, node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		event := logger.Info()
		switch {
		case status >= 500:
			event = logger.Error()
		case status == 404:
			event = logger.Debug()
		case status >= 400:
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("mirror_request")

		RecordHTTPRequest(node, c.Request.Method, route, status, elapsed)
	}
}
