package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's Prometheus collectors. All methods are safe to
// call on a nil *Metrics, which records nothing.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.WebhookDelivery("processed")
//	metrics.RecordAssistantRun("completed", time.Since(start).Seconds(), attempts)
type Metrics struct {
	registry *prometheus.Registry

	// WebhookDeliveries counts webhook POST bodies by what happened to them.
	// Labels: outcome (processed|ignored|duplicate|invalid|error)
	WebhookDeliveries *prometheus.CounterVec

	// MessageCounter tracks messages by direction.
	// Labels: direction (inbound|outbound)
	MessageCounter *prometheus.CounterVec

	// AssistantRuns counts bridge turns by outcome.
	// Labels: outcome (completed|failed|timeout|empty|error)
	AssistantRuns *prometheus.CounterVec

	// AssistantRunDuration measures a whole bridge turn in seconds.
	// Labels: outcome
	AssistantRunDuration *prometheus.HistogramVec

	// AssistantPollAttempts records how many status polls a run needed.
	AssistantPollAttempts prometheus.Histogram

	// AssistantThreads is the number of sender to thread mappings held.
	AssistantThreads prometheus.Gauge

	// SendCounter counts outbound send calls.
	// Labels: status (success|timeout|error)
	SendCounter *prometheus.CounterVec

	// SendDuration measures outbound send latency in seconds.
	SendDuration prometheus.Histogram

	// ErrorCounter tracks errors by component and type.
	// Labels: component (webhook|assistant|whatsapp), error_type
	ErrorCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetricsWithRegistry(reg)
}

// NewMetricsWithRegistry registers the collectors on reg.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		WebhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wa_relay_webhook_deliveries_total",
				Help: "Total number of webhook deliveries by outcome",
			},
			[]string{"outcome"},
		),

		MessageCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wa_relay_messages_total",
				Help: "Total number of messages by direction",
			},
			[]string{"direction"},
		),

		AssistantRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wa_relay_assistant_runs_total",
				Help: "Total number of assistant turns by outcome",
			},
			[]string{"outcome"},
		),

		AssistantRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wa_relay_assistant_run_duration_seconds",
				Help:    "Duration of assistant turns in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),

		AssistantPollAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wa_relay_assistant_poll_attempts",
				Help:    "Number of run status polls per assistant turn",
				Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
			},
		),

		AssistantThreads: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wa_relay_assistant_threads",
				Help: "Number of sender to thread mappings held in memory",
			},
		),

		SendCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wa_relay_send_total",
				Help: "Total number of outbound send calls by status",
			},
			[]string{"status"},
		),

		SendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wa_relay_send_duration_seconds",
				Help:    "Duration of outbound send calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wa_relay_errors_total",
				Help: "Total number of errors by component and type",
			},
			[]string{"component", "error_type"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wa_relay_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wa_relay_http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status code",
			},
			[]string{"method", "path", "status_code"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WebhookDelivery records what happened to one webhook body.
func (m *Metrics) WebhookDelivery(outcome string) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(outcome).Inc()
}

// MessageReceived increments the inbound message counter.
func (m *Metrics) MessageReceived() {
	if m == nil {
		return
	}
	m.MessageCounter.WithLabelValues("inbound").Inc()
}

// MessageSent increments the outbound message counter.
func (m *Metrics) MessageSent() {
	if m == nil {
		return
	}
	m.MessageCounter.WithLabelValues("outbound").Inc()
}

// RecordAssistantRun records one bridge turn.
func (m *Metrics) RecordAssistantRun(outcome string, durationSeconds float64, pollAttempts int) {
	if m == nil {
		return
	}
	m.AssistantRuns.WithLabelValues(outcome).Inc()
	m.AssistantRunDuration.WithLabelValues(outcome).Observe(durationSeconds)
	if pollAttempts > 0 {
		m.AssistantPollAttempts.Observe(float64(pollAttempts))
	}
}

// SetAssistantThreads sets the thread mapping gauge.
func (m *Metrics) SetAssistantThreads(n int) {
	if m == nil {
		return
	}
	m.AssistantThreads.Set(float64(n))
}

// RecordSend records one outbound send call.
func (m *Metrics) RecordSend(status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SendCounter.WithLabelValues(status).Inc()
	m.SendDuration.Observe(durationSeconds)
}

// RecordError increments the error counter for a component and type.
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}
