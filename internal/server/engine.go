package server

import (
	"github.com/gin-gonic/gin"

	"github.com/TD-Producoes/revshare-sub001/internal/config"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/logger"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/metrics"
)

func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(httpMetrics))
	return engine
}
