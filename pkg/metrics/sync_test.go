package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)
	metrics.ObserveWebhook("ORDERS_CREATE", "applied", 250*time.Millisecond)
	metrics.ObserveWebhook("ORDERS_CREATE", "applied", 10*time.Millisecond)
	metrics.IncFailure(FailureAuditLog)
	metrics.ObservePage("orders", 50)
	metrics.ObservePage("orders", 20)
	metrics.IncBackorder("incremented")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "commerce_sync_webhook_events_total", "topic", "ORDERS_CREATE"); err != nil {
		t.Fatalf("fetch webhook events: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 webhook events, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "commerce_sync_failures_total", "class", FailureAuditLog); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 audit failure, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "commerce_sync_backfill_pages_total", "resource", "orders"); err != nil {
		t.Fatalf("fetch pages: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 pages, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "commerce_sync_backfill_items_total", "resource", "orders"); err != nil {
		t.Fatalf("fetch items: %v", err)
	} else if got != 70 {
		t.Fatalf("expected 70 items, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "commerce_sync_backorder_decisions_total", "result", "incremented"); err != nil {
		t.Fatalf("fetch backorders: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 backorder decision, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "commerce_sync_webhook_duration_seconds", "topic", "ORDERS_CREATE"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilSyncMetricsIsNoop(t *testing.T) {
	var metrics *SyncMetrics
	metrics.ObserveWebhook("x", "applied", time.Second)
	metrics.IncFailure(FailureTransport)
	metrics.ObservePage("orders", 1)
	metrics.IncBackorder("incremented")

	NewSyncMetrics(nil).ObserveWebhook("x", "applied", time.Second)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
