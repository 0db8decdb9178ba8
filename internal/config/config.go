package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

const defaultRefundWindowDays = 30

// Config carries all environment-sourced settings for the service.
type Config struct {
	Environment string
	ServiceName string
	HTTPAddr    string

	DatabaseDSN string

	// StripeWebhookSecrets is the ordered list of signing secrets tried
	// during webhook verification. More than one entry supports secret
	// rotation: the first secret that verifies wins.
	StripeWebhookSecrets []string
	StripeAPIKey         string

	DefaultRefundWindowDays int

	ResendAPIKey string
	EmailFrom    string

	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string
	TracingSampling float64
	ClaimRateLimit  int
	ClaimRateWindow time.Duration
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment. A .env file is honored
// when present so local development matches deployed behavior.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:             envOr("ENVIRONMENT", "development"),
		ServiceName:             envOr("SERVICE_NAME", "revshare"),
		HTTPAddr:                envOr("HTTP_ADDR", ":8080"),
		DatabaseDSN:             os.Getenv("DATABASE_DSN"),
		StripeAPIKey:            os.Getenv("STRIPE_API_KEY"),
		DefaultRefundWindowDays: envInt("DEFAULT_REFUND_WINDOW_DAYS", defaultRefundWindowDays),
		ResendAPIKey:            os.Getenv("RESEND_API_KEY"),
		EmailFrom:               envOr("EMAIL_FROM", "noreply@revshare.app"),
		TracingEnabled:          envBool("TRACING_ENABLED", false),
		TracingEndpoint:         os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingProtocol:         envOr("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
		TracingSampling:         envFloat("TRACING_SAMPLING_RATIO", 0.1),
		ClaimRateLimit:          envInt("CLAIM_RATE_LIMIT", 30),
		ClaimRateWindow:         time.Minute,
	}

	for _, secret := range strings.Split(os.Getenv("STRIPE_WEBHOOK_SECRETS"), ",") {
		secret = strings.TrimSpace(secret)
		if secret != "" {
			cfg.StripeWebhookSecrets = append(cfg.StripeWebhookSecrets, secret)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

var Module = fx.Module("config",
	fx.Provide(Load),
)
