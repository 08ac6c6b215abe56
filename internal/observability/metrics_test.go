package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	// Each instance owns its registry, so building two must not panic.
	a := NewMetrics()
	b := NewMetrics()
	if a.Registry() == b.Registry() {
		t.Fatal("expected distinct registries")
	}
}

func TestWebhookDelivery(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.WebhookDelivery("processed")
	m.WebhookDelivery("processed")
	m.WebhookDelivery("ignored")

	expected := `
		# HELP wa_relay_webhook_deliveries_total Total number of webhook deliveries by outcome
		# TYPE wa_relay_webhook_deliveries_total counter
		wa_relay_webhook_deliveries_total{outcome="ignored"} 1
		wa_relay_webhook_deliveries_total{outcome="processed"} 2
	`
	if err := testutil.CollectAndCompare(m.WebhookDeliveries, strings.NewReader(expected)); err != nil {
		t.Errorf("Unexpected metric value: %v", err)
	}
}

func TestMessageCounters(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.MessageReceived()
	m.MessageSent()
	m.MessageSent()

	if got := testutil.ToFloat64(m.MessageCounter.WithLabelValues("inbound")); got != 1 {
		t.Errorf("inbound = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.MessageCounter.WithLabelValues("outbound")); got != 2 {
		t.Errorf("outbound = %v, want 2", got)
	}
}

func TestRecordAssistantRun(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordAssistantRun("completed", 1.5, 3)
	m.RecordAssistantRun("failed", 0.4, 0)

	if got := testutil.ToFloat64(m.AssistantRuns.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed runs = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.AssistantRunDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
	if got := testutil.CollectAndCount(m.AssistantPollAttempts); got != 1 {
		t.Errorf("poll attempt series = %d, want 1", got)
	}
}

func TestRecordSendAndErrors(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordSend("success", 0.2)
	m.RecordSend("timeout", 10)
	m.RecordError("whatsapp", "TIMEOUT_ERROR")
	m.SetAssistantThreads(4)

	if got := testutil.ToFloat64(m.SendCounter.WithLabelValues("timeout")); got != 1 {
		t.Errorf("timeout sends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ErrorCounter.WithLabelValues("whatsapp", "TIMEOUT_ERROR")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.AssistantThreads); got != 4 {
		t.Errorf("threads = %v, want 4", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetricsWithRegistry(prometheus.NewRegistry())

	m.RecordHTTPRequest("POST", "/webhook", "200", 0.05)
	m.RecordHTTPRequest("GET", "/healthz", "200", 0.001)

	if got := testutil.CollectAndCount(m.HTTPRequestCounter); got != 2 {
		t.Errorf("request series = %d, want 2", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.WebhookDelivery("processed")
	m.MessageReceived()
	m.MessageSent()
	m.RecordAssistantRun("completed", 1, 1)
	m.SetAssistantThreads(1)
	m.RecordSend("success", 1)
	m.RecordError("a", "b")
	m.RecordHTTPRequest("GET", "/", "200", 1)
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.WebhookDelivery("processed")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `wa_relay_webhook_deliveries_total{outcome="processed"} 1`) {
		t.Errorf("metrics output missing webhook counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing Go runtime collector")
	}
}
