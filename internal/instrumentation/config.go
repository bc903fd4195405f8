package instrumentation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config selects where the metrics and spans of a run are exported.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled turns instrumentation on. When false NewProvider returns a
	// provider whose recorder drops everything.
	Enabled bool

	// MetricsExporter is one of prometheus, otlp or stdout.
	MetricsExporter string

	// TracingExporter is one of otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port of the collector, without a scheme.
	OTLPEndpoint string
	OTLPInsecure bool

	// TraceSamplingRate is the ratio of root spans kept, in [0, 1].
	TraceSamplingRate float64

	// PrometheusTextfile is where the prometheus exporter writes the metrics
	// of the run on shutdown, for the node exporter textfile collector.
	// Empty disables the file.
	PrometheusTextfile string

	// DetailedLabels adds the sender domain to action metrics.
	// Keep disabled unless the sender lists are small.
	DetailedLabels bool

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig controls the per-message action log.
type AuditLoggingConfig struct {
	Enabled bool

	// IncludePII logs full sender addresses and subjects instead of
	// only the sender domain.
	IncludePII bool
}

// Settings read by DefaultConfig. Each key is also the lower-cased name of
// its environment variable.
const (
	keyServiceName     = "otel_service_name"
	keyEnabled         = "instrumentation_enabled"
	keyMetricsExporter = "metrics_exporter"
	keyTracingExporter = "tracing_exporter"
	keyOTLPEndpoint    = "otel_exporter_otlp_endpoint"
	keyOTLPInsecure    = "otel_exporter_otlp_insecure"
	keySamplingRate    = "otel_traces_sampler_arg"
	keyTextfile        = "prometheus_textfile"
	keyDetailedLabels  = "metrics_detailed_labels"
	keyAuditEnabled    = "audit_logging_enabled"
	keyAuditPII        = "audit_logging_include_pii"
)

var settingDefaults = map[string]any{
	keyServiceName:     "gmailnotify",
	keyEnabled:         false,
	keyMetricsExporter: ExporterPrometheus,
	keyTracingExporter: ExporterNone,
	keyOTLPEndpoint:    "",
	keyOTLPInsecure:    false,
	keySamplingRate:    1.0,
	keyTextfile:        "",
	keyDetailedLabels:  false,
	keyAuditEnabled:    true,
	keyAuditPII:        false,
}

// DefaultConfig builds a Config from the environment. Unset or unparsable
// values take their defaults; ServiceVersion is left for the caller.
func DefaultConfig() Config {
	v := viper.New()
	for key, value := range settingDefaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	return Config{
		ServiceName:        v.GetString(keyServiceName),
		ServiceVersion:     "unknown",
		Enabled:            boolSetting(v, keyEnabled),
		MetricsExporter:    v.GetString(keyMetricsExporter),
		TracingExporter:    v.GetString(keyTracingExporter),
		OTLPEndpoint:       v.GetString(keyOTLPEndpoint),
		OTLPInsecure:       boolSetting(v, keyOTLPInsecure),
		TraceSamplingRate:  floatSetting(v, keySamplingRate),
		PrometheusTextfile: v.GetString(keyTextfile),
		DetailedLabels:     boolSetting(v, keyDetailedLabels),
		AuditLogging: AuditLoggingConfig{
			Enabled:    boolSetting(v, keyAuditEnabled),
			IncludePII: boolSetting(v, keyAuditPII),
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains(metricsExporters, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: %s", c.MetricsExporter, strings.Join(metricsExporters, ", "))
	}
	if c.TracingExporter != "" && !slices.Contains(tracingExporters, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: %s", c.TracingExporter, strings.Join(tracingExporters, ", "))
	}
	if c.OTLPEndpoint == "" && (c.MetricsExporter == ExporterOTLP || c.TracingExporter == ExporterOTLP) {
		return fmt.Errorf("OTLP endpoint is required for the otlp exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return nil
}

var (
	metricsExporters = []string{ExporterPrometheus, ExporterOTLP, ExporterStdout}
	tracingExporters = []string{ExporterOTLP, ExporterStdout, ExporterNone}
)

func boolSetting(v *viper.Viper, key string) bool {
	if b, err := strconv.ParseBool(v.GetString(key)); err == nil {
		return b
	}
	return settingDefaults[key].(bool)
}

func floatSetting(v *viper.Viper, key string) float64 {
	if f, err := strconv.ParseFloat(v.GetString(key), 64); err == nil {
		return f
	}
	return settingDefaults[key].(float64)
}

// Constants for metric label values.
const (
	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)
