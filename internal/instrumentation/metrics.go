package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrAction    = "action"
	attrKind      = "kind"
	attrDomain    = "sender_domain"
)

// Action label values for message_actions_total.
const (
	ActionDelete     = "delete"
	ActionNotify     = "notify"
	ActionAttachment = "attachment"
)

// Error kinds for run_errors_total.
const (
	ErrorKindConfig     = "config"
	ErrorKindAuth       = "auth"
	ErrorKindConnection = "connection"
	ErrorKindIO         = "io"
	ErrorKindNotify     = "notify"
)

// Metrics provides methods for recording observability metrics.
// A nil *Metrics, or one created without a meter, records nothing.
type Metrics struct {
	// Pipeline metrics
	messagesScanned metric.Int64Counter
	messageActions  metric.Int64Counter
	attachmentBytes metric.Int64Counter
	runDuration     metric.Float64Histogram
	runErrors       metric.Int64Counter

	// IMAP metrics
	imapOperationsTotal   metric.Int64Counter
	imapOperationDuration metric.Float64Histogram

	// Telegram metrics
	notifyRequestsTotal metric.Int64Counter
	notifyDuration      metric.Float64Histogram

	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.messagesScanned, err = meter.Int64Counter(
		"messages_scanned_total",
		metric.WithDescription("Total number of messages listed from the mailbox"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create messages_scanned_total counter: %w", err)
	}

	m.messageActions, err = meter.Int64Counter(
		"message_actions_total",
		metric.WithDescription("Total number of actions applied to messages"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message_actions_total counter: %w", err)
	}

	m.attachmentBytes, err = meter.Int64Counter(
		"attachments_saved_bytes_total",
		metric.WithDescription("Total number of attachment bytes written to disk"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_saved_bytes_total counter: %w", err)
	}

	m.runDuration, err = meter.Float64Histogram(
		"run_duration_seconds",
		metric.WithDescription("Duration of a full mailbox run in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run_duration_seconds histogram: %w", err)
	}

	m.runErrors, err = meter.Int64Counter(
		"run_errors_total",
		metric.WithDescription("Total number of run errors by kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run_errors_total counter: %w", err)
	}

	m.imapOperationsTotal, err = meter.Int64Counter(
		"imap_operations_total",
		metric.WithDescription("Total number of IMAP commands"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create imap_operations_total counter: %w", err)
	}

	m.imapOperationDuration, err = meter.Float64Histogram(
		"imap_operation_duration_seconds",
		metric.WithDescription("IMAP command duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create imap_operation_duration_seconds histogram: %w", err)
	}

	m.notifyRequestsTotal, err = meter.Int64Counter(
		"notify_requests_total",
		metric.WithDescription("Total number of Telegram sendMessage calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify_requests_total counter: %w", err)
	}

	m.notifyDuration, err = meter.Float64Histogram(
		"notify_duration_seconds",
		metric.WithDescription("Telegram sendMessage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notify_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordMessageScanned counts one message listed from the mailbox.
func (m *Metrics) RecordMessageScanned(ctx context.Context) {
	if m == nil || m.messagesScanned == nil {
		return
	}
	m.messagesScanned.Add(ctx, 1)
}

// RecordMessageAction records an action applied to a message.
//
// Parameters:
//   - action: ActionDelete, ActionNotify or ActionAttachment
//   - status: StatusSuccess, StatusError or StatusSkipped
//   - sender: sender address, only its domain is used and only with detailed labels
func (m *Metrics) RecordMessageAction(ctx context.Context, action, status, sender string) {
	if m == nil || m.messageActions == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && sender != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractSenderDomain(sender)))
	}

	m.messageActions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAttachmentSaved adds the size of a saved attachment.
func (m *Metrics) RecordAttachmentSaved(ctx context.Context, bytes int64) {
	if m == nil || m.attachmentBytes == nil {
		return
	}
	m.attachmentBytes.Add(ctx, bytes)
}

// RecordIMAPOperation records an IMAP command with operation, status, and duration.
func (m *Metrics) RecordIMAPOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.imapOperationsTotal == nil || m.imapOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.imapOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.imapOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordNotify records a Telegram sendMessage call.
func (m *Metrics) RecordNotify(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.notifyRequestsTotal == nil || m.notifyDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrStatus, status),
	}

	m.notifyRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.notifyDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRunError counts an error of the given kind.
func (m *Metrics) RecordRunError(ctx context.Context, kind string) {
	if m == nil || m.runErrors == nil {
		return
	}
	m.runErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}

// RecordRun records the duration of a complete run.
func (m *Metrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil || m.runDuration == nil {
		return
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrStatus, status)))
}
