package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts webhook deliveries and commission ledger writes.
type WebhookMetrics struct {
	webhookEvents      *prometheus.CounterVec
	purchasesRecorded  prometheus.Counter
	adjustmentsWritten *prometheus.CounterVec
}

var (
	webhookMetricsOnce sync.Once
	webhookMetrics     *WebhookMetrics
)

func Webhook() *WebhookMetrics {
	return WebhookWithConfig(Config{})
}

func WebhookWithConfig(cfg Config) *WebhookMetrics {
	webhookMetricsOnce.Do(func() {
		webhookMetrics = newWebhookMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return webhookMetrics
}

func ResetWebhookMetricsForTest() {
	webhookMetricsOnce = sync.Once{}
	webhookMetrics = nil
}

func newWebhookMetrics(registerer prometheus.Registerer, cfg Config) *WebhookMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "revshare"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	webhookEvents := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "revshare_webhook_events_total",
			Help:        "Stripe webhook deliveries by event type and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"event_type", "outcome"}, // processed | duplicate | ignored | rejected | failed
	)

	purchasesRecorded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "revshare_purchases_recorded_total",
			Help:        "Purchases materialized from webhook events.",
			ConstLabels: constLabels,
		},
	)

	adjustmentsWritten := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "revshare_commission_adjustments_total",
			Help:        "Commission adjustment ledger entries by reason.",
			ConstLabels: constLabels,
		},
		[]string{"reason"}, // REFUND | CHARGEBACK | CHARGEBACK_REVERSAL
	)

	registerer.MustRegister(
		webhookEvents,
		purchasesRecorded,
		adjustmentsWritten,
	)

	return &WebhookMetrics{
		webhookEvents:      webhookEvents,
		purchasesRecorded:  purchasesRecorded,
		adjustmentsWritten: adjustmentsWritten,
	}
}

func (m *WebhookMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *WebhookMetrics) IncPurchaseRecorded() {
	if m == nil {
		return
	}
	m.purchasesRecorded.Inc()
}

func (m *WebhookMetrics) IncAdjustmentWritten(reason string) {
	if m == nil {
		return
	}
	m.adjustmentsWritten.WithLabelValues(reason).Inc()
}
