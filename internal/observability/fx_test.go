package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/TD-Producoes/revshare-sub001/internal/config"
)

func TestModuleInstallsTracerProviderOnStartup(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(config.Config{
			Environment:     "development",
			ServiceName:     "revshare-test",
			TracingEnabled:  true,
			TracingProtocol: "http",
			TracingSampling: 1,
		}),
		Module,
	)
	if err := app.Err(); err != nil {
		t.Fatalf("build app: %v", err)
	}

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("expected sdk tracer provider, got %T", otel.GetTracerProvider())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestModuleDisabledTracingUsesNoopProvider(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(config.Config{
			Environment: "development",
			ServiceName: "revshare-test",
		}),
		Module,
	)
	if err := app.Err(); err != nil {
		t.Fatalf("build app: %v", err)
	}

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		t.Fatal("disabled tracing must not install the sdk provider")
	}
}
