// Package observability provides the relay's structured logging, Prometheus
// metrics and OpenTelemetry tracing.
//
// # Logging
//
// NewLogger returns a *slog.Logger whose handler redacts secrets (OpenAI
// keys, Graph access tokens, bearer headers, app secrets) from messages and
// attributes, and adds correlation ids stored in the context:
//
//	ctx = observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddSenderID(ctx, msg.SenderID)
//	logger.InfoContext(ctx, "processing message")
//
// # Metrics
//
// NewMetrics registers collectors on its own registry; Handler serves it at
// /metrics. A nil *Metrics records nothing, which keeps tests and the CLI
// free of metric plumbing.
//
//	rate(wa_relay_assistant_runs_total{outcome!="completed"}[5m])
//	histogram_quantile(0.95, rate(wa_relay_assistant_run_duration_seconds_bucket[5m]))
//
// # Tracing
//
// NewTracer exports spans over OTLP/gRPC when an endpoint is configured and
// is a no-op otherwise. The relay opens one span per webhook delivery with
// child spans for the assistant turn and the outbound send.
package observability
