package observability

import (
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/TD-Producoes/revshare-sub001/internal/config"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/logger"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/metrics"
	"github.com/TD-Producoes/revshare-sub001/internal/observability/tracing"
	"go.uber.org/fx"
)

var version = "dev"

// Module wires logging, tracing, and metrics from the service config.
var Module = fx.Module("observability",
	fx.Provide(func(cfg config.Config) logger.Config {
		return logger.Config{
			Environment: cfg.Environment,
			ServiceName: cfg.ServiceName,
		}
	}),
	logger.Module,
	fx.Provide(func(cfg config.Config) tracing.Config {
		return tracing.Config{
			Enabled:          cfg.TracingEnabled,
			ServiceName:      cfg.ServiceName,
			ServiceVersion:   version,
			Environment:      cfg.Environment,
			ExporterEndpoint: cfg.TracingEndpoint,
			ExporterProtocol: cfg.TracingProtocol,
			SamplingRatio:    cfg.TracingSampling,
		}
	}),
	fx.Provide(tracing.NewProvider),
	// Constructors are lazy and nothing downstream consumes the tracer
	// provider. Demand it so the exporter and global propagator are set
	// up at startup.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
	fx.Provide(func(cfg config.Config) metrics.Config {
		return metrics.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
		}
	}),
	fx.Provide(func(cfg metrics.Config) *metrics.WebhookMetrics {
		return metrics.WebhookWithConfig(cfg)
	}),
	fx.Provide(func(cfg metrics.Config) (*metrics.HTTPMetrics, error) {
		return metrics.NewHTTPMetrics(cfg, otel.GetMeterProvider())
	}),
)
