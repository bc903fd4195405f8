package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// ActionRecord captures one action applied to a message for audit logging.
//
// # Privacy Considerations
//
// The Sender field contains PII. Unless the audit logger is configured with
// IncludePII, only the sender domain is written.
type ActionRecord struct {
	// Action is ActionDelete, ActionNotify or ActionAttachment.
	Action string

	// Message identity
	UID     uint32
	Sender  string
	Subject string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewActionRecord creates a new ActionRecord with timing started.
// Call Complete() when the action finishes.
func NewActionRecord(action string, uid uint32, sender string) *ActionRecord {
	return &ActionRecord{
		Action:    action,
		UID:       uid,
		Sender:    sender,
		StartTime: time.Now(),
	}
}

// SenderDomain returns the domain portion of the sender for lower-cardinality logging.
func (ar *ActionRecord) SenderDomain() string {
	return ExtractSenderDomain(ar.Sender)
}

// Status returns "success" or "error" based on the Success field.
func (ar *ActionRecord) Status() string {
	if ar.Success {
		return StatusSuccess
	}
	return StatusError
}

// WithSubject sets the message subject. Subjects are only logged with PII enabled.
func (ar *ActionRecord) WithSubject(subject string) *ActionRecord {
	ar.Subject = subject
	return ar
}

// WithSpanContext extracts trace context from the current span.
func (ar *ActionRecord) WithSpanContext(ctx context.Context) *ActionRecord {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ar.TraceID = span.SpanContext().TraceID().String()
		ar.SpanID = span.SpanContext().SpanID().String()
	}
	return ar
}

// Complete marks the action as completed and calculates duration.
func (ar *ActionRecord) Complete(err error) *ActionRecord {
	ar.Duration = time.Since(ar.StartTime)
	ar.Success = err == nil
	if err != nil {
		ar.Error = err.Error()
	}
	return ar
}

// LogAttrs returns slog attributes with the sender reduced to its domain.
func (ar *ActionRecord) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", ar.Action),
		slog.Any("uid", ar.UID),
		slog.String("sender_domain", ar.SenderDomain()),
		slog.Duration("duration", ar.Duration),
		slog.Bool("success", ar.Success),
	}
	return ar.appendOptional(attrs)
}

// LogAuditAttrs returns slog attributes including the full sender and subject.
func (ar *ActionRecord) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("action", ar.Action),
		slog.Any("uid", ar.UID),
		slog.String("sender", ar.Sender),
		slog.Duration("duration", ar.Duration),
		slog.Bool("success", ar.Success),
	}
	if ar.Subject != "" {
		attrs = append(attrs, slog.String("subject", ar.Subject))
	}
	if ar.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ar.SpanID))
	}
	return ar.appendOptional(attrs)
}

func (ar *ActionRecord) appendOptional(attrs []slog.Attr) []slog.Attr {
	if ar.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ar.TraceID))
	}
	if ar.Error != "" {
		attrs = append(attrs, slog.String("error", ar.Error))
	}
	return attrs
}

// AuditLogger writes one log line per message action.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to slog.Default.
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogAction logs a completed action. Failed actions are logged at warn level.
// Safe to call on a nil *AuditLogger.
func (al *AuditLogger) LogAction(ar *ActionRecord) {
	if al == nil || !al.enabled || ar == nil {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = ar.LogAuditAttrs()
	} else {
		attrs = ar.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ar.Success {
		al.logger.Info("message_action", args...)
	} else {
		al.logger.Warn("message_action_failed", args...)
	}
}
