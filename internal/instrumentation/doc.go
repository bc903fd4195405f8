// Package instrumentation provides OpenTelemetry metrics and tracing for a
// gmailnotify run.
//
// Instrumentation is off by default; a one-shot CLI run has nothing to export
// unless an operator asks for it.
//
// # Metrics
//
// Pipeline metrics:
//   - messages_scanned_total: Counter of messages listed from the mailbox
//   - message_actions_total: Counter of delete/notify/attachment actions by status
//   - attachments_saved_bytes_total: Counter of attachment bytes written to disk
//   - run_duration_seconds: Histogram of full run durations by status
//   - run_errors_total: Counter of errors by kind (config, auth, connection, io, notify)
//
// Mail store metrics:
//   - imap_operations_total: Counter of IMAP commands by operation and status
//   - imap_operation_duration_seconds: Histogram of IMAP command durations
//
// Notification metrics:
//   - notify_requests_total: Counter of Telegram sendMessage calls by status
//   - notify_duration_seconds: Histogram of Telegram call durations
//
// # Tracing
//
// Spans are created for every pipeline stage (stage.<name>), every IMAP
// command (imap.<operation>) and the Telegram call (telegram.send_message).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - PROMETHEUS_TEXTFILE: file the prometheus exporter writes at the end of the
//     run, for the node_exporter textfile collector
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: gmailnotify)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordMessageScanned(ctx)
//	metrics.RecordIMAPOperation(ctx, "fetch", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
