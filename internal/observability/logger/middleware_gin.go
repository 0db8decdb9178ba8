package logger

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	obscontext "github.com/TD-Producoes/revshare-sub001/internal/observability/context"
)

const requestIDHeader = "X-Request-Id"

// MiddlewareConfig controls the gin request logger.
type MiddlewareConfig struct {
	// SkipPaths are request paths that are not logged (health checks,
	// metrics scrapes).
	SkipPaths []string
}

// GinMiddleware assigns a request ID, logs each request with masked
// headers, and records latency.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	node, err := snowflake.NewNode(511)
	if err != nil {
		panic(err)
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = node.Generate().String()
		}
		c.Header(requestIDHeader, requestID)
		c.Request = c.Request.WithContext(obscontext.WithRequestID(c.Request.Context(), requestID))

		start := time.Now()
		c.Next()

		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}

		log := FromContext(c.Request.Context()).With(
			zap.String("request_id", requestID),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Any("request", SafeFieldsFromRequest(c.Request)),
		)
		switch {
		case c.Writer.Status() >= 500:
			log.Error("request failed")
		case c.Writer.Status() >= 400:
			log.Warn("request rejected")
		default:
			log.Info("request handled")
		}
	}
}
