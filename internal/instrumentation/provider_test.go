package instrumentation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewProvider_Disabled(t *testing.T) {
	config := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	}

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}
	if provider.Gatherer() != nil {
		t.Error("expected no gatherer when disabled")
	}

	// Recording on the no-op recorder must not panic.
	provider.Metrics().RecordMessageScanned(context.Background())

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil")
	}
	if provider.Gatherer() == nil {
		t.Error("expected gatherer for prometheus exporter")
	}
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	config := Config{
		ServiceName:       "test-service",
		ServiceVersion:    "1.0.0",
		Enabled:           true,
		MetricsExporter:   ExporterStdout,
		TracingExporter:   ExporterStdout,
		TraceSamplingRate: 1.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if provider.Gatherer() != nil {
		t.Error("expected no gatherer for stdout exporter")
	}
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: "graphite",
	}

	if _, err := NewProvider(context.Background(), config); err == nil {
		t.Fatal("expected error for unsupported exporter")
	}
}

func TestProvider_ShutdownWritesTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gmailnotify.prom")
	config := Config{
		ServiceName:        "test-service",
		ServiceVersion:     "1.0.0",
		Enabled:            true,
		MetricsExporter:    ExporterPrometheus,
		TracingExporter:    ExporterNone,
		PrometheusTextfile: path,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	provider.Metrics().RecordMessageScanned(ctx)
	provider.Metrics().RecordMessageAction(ctx, ActionDelete, StatusSuccess, "spam@x.com")

	if err := provider.Shutdown(ctx); err != nil {
		t.Fatalf("expected no error on shutdown, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected textfile to be written: %v", err)
	}
	if !strings.Contains(string(data), "messages_scanned_total") {
		t.Errorf("expected messages_scanned_total in textfile, got:\n%s", data)
	}
	if !strings.Contains(string(data), "message_actions_total") {
		t.Errorf("expected message_actions_total in textfile, got:\n%s", data)
	}
}
