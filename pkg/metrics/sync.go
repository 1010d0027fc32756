package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "commerce_sync"

// Failure classes reported by the sync engine.
const (
	FailureTransport          = "transport"
	FailureMalformedPayload   = "malformed_payload"
	FailurePersistence        = "persistence"
	FailureReconciliationData = "reconciliation_data"
	FailureAuditLog           = "audit_log"
)

// SyncMetrics records webhook, backfill and backorder activity.
type SyncMetrics struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	failures        *prometheus.CounterVec
	backfillPages   *prometheus.CounterVec
	backfillItems   *prometheus.CounterVec
	backorders      *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Webhook deliveries by topic and terminal outcome.",
	}, []string{"topic", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_duration_seconds",
		Help:      "Time spent applying a webhook delivery.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"topic"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failures_total",
		Help:      "Swallowed failures by class.",
	}, []string{"class"})
	backfillPages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backfill_pages_total",
		Help:      "Pages fetched by the bulk backfill.",
	}, []string{"resource"})
	backfillItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backfill_items_total",
		Help:      "Items collected by the bulk backfill.",
	}, []string{"resource"})
	backorders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backorder_decisions_total",
		Help:      "Backorder reconciliation decisions per line item.",
	}, []string{"result"})
	reg.MustRegister(webhookEvents, webhookDuration, failures, backfillPages, backfillItems, backorders)
	return &SyncMetrics{
		webhookEvents:   webhookEvents,
		webhookDuration: webhookDuration,
		failures:        failures,
		backfillPages:   backfillPages,
		backfillItems:   backfillItems,
		backorders:      backorders,
	}
}

// ObserveWebhook records the terminal outcome and duration of one delivery.
func (m *SyncMetrics) ObserveWebhook(topic, outcome string, duration time.Duration) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	topic = normalizeLabel(topic)
	m.webhookEvents.WithLabelValues(topic, normalizeLabel(outcome)).Inc()
	m.webhookDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// IncFailure counts a swallowed failure of the given class.
func (m *SyncMetrics) IncFailure(class string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(class)).Inc()
}

// ObservePage counts one fetched page and the items it carried.
func (m *SyncMetrics) ObservePage(resource string, items int) {
	if m == nil || m.backfillPages == nil {
		return
	}
	resource = normalizeLabel(resource)
	m.backfillPages.WithLabelValues(resource).Inc()
	m.backfillItems.WithLabelValues(resource).Add(float64(items))
}

// IncBackorder counts a reconciliation decision.
func (m *SyncMetrics) IncBackorder(result string) {
	if m == nil || m.backorders == nil {
		return
	}
	m.backorders.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
