package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span", attribute.String("k", "v"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != "test-span" {
		t.Errorf("unexpected span name %q", ended[0].Name())
	}
	if v, ok := attrValue(ended[0].Attributes(), "k"); !ok || v.AsString() != "v" {
		t.Errorf("expected attribute k=v, got %v", ended[0].Attributes())
	}
}

func TestStartStageSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartStageSpan(context.Background(), "sweep")
	span.End()

	s := recorder.Ended()[0]
	if s.Name() != "stage.sweep" {
		t.Errorf("expected span name stage.sweep, got %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindInternal {
		t.Errorf("expected internal span, got %v", s.SpanKind())
	}
	if v, ok := attrValue(s.Attributes(), SpanAttrStage); !ok || v.AsString() != "sweep" {
		t.Errorf("expected stage attribute, got %v", s.Attributes())
	}
}

func TestStartIMAPSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartIMAPSpan(context.Background(), "fetch", attribute.String(SpanAttrMailbox, "INBOX"))
	span.End()

	s := recorder.Ended()[0]
	if s.Name() != "imap.fetch" {
		t.Errorf("expected span name imap.fetch, got %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span, got %v", s.SpanKind())
	}
	if v, ok := attrValue(s.Attributes(), SpanAttrOperation); !ok || v.AsString() != "fetch" {
		t.Errorf("expected operation attribute, got %v", s.Attributes())
	}
	if _, ok := attrValue(s.Attributes(), SpanAttrMailbox); !ok {
		t.Error("expected extra attributes to be kept")
	}
}

func TestStartNotifySpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartNotifySpan(context.Background(), 3)
	span.End()

	s := recorder.Ended()[0]
	if s.Name() != "telegram.send_message" {
		t.Errorf("unexpected span name %q", s.Name())
	}
	if v, ok := attrValue(s.Attributes(), SpanAttrEntries); !ok || v.AsInt64() != 3 {
		t.Errorf("expected entries=3, got %v", s.Attributes())
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, errors.New("test error"))
	span.End()

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "test error" {
		t.Errorf("expected error status, got %+v", s.Status())
	}
	if len(s.Events()) != 1 {
		t.Errorf("expected recorded error event, got %d events", len(s.Events()))
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanError(span, nil)
	span.End()

	if code := recorder.Ended()[0].Status().Code; code != codes.Unset {
		t.Errorf("expected unset status for nil error, got %v", code)
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	SetSpanSuccess(span)
	span.End()

	if code := recorder.Ended()[0].Status().Code; code != codes.Ok {
		t.Errorf("expected ok status, got %v", code)
	}
}

func TestAddSpanEvent(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span")
	AddSpanEvent(span, "message.deleted", attribute.Int("uid", 7))
	span.End()

	events := recorder.Ended()[0].Events()
	if len(events) != 1 || events[0].Name != "message.deleted" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestGetTraceAndSpanID(t *testing.T) {
	withRecorder(t)

	if GetTraceID(context.Background()) != "" {
		t.Error("expected empty trace ID without span")
	}
	if GetSpanID(context.Background()) != "" {
		t.Error("expected empty span ID without span")
	}

	ctx, span := StartSpan(context.Background(), "test-span")
	defer span.End()

	if got := GetTraceID(ctx); got != span.SpanContext().TraceID().String() {
		t.Errorf("GetTraceID() = %q", got)
	}
	if got := GetSpanID(ctx); got != span.SpanContext().SpanID().String() {
		t.Errorf("GetSpanID() = %q", got)
	}
}
