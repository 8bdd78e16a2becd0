package instrumentation

import (
	"fmt"
	"os"
	"strconv"
)

// Exporter names accepted by METRICS_EXPORTER and TRACING_EXPORTER.
const (
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"
)

// Config selects exporters and identifies the service in emitted telemetry.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// InstanceID defaults to the hostname, which is the pod name on Kubernetes.
	InstanceID string

	// Enabled turns metrics and tracing on. A disabled provider records nothing.
	Enabled bool

	// MetricsExporter is prometheus, otlp or stdout.
	MetricsExporter string
	// TracingExporter is otlp, stdout or none.
	TracingExporter string

	// OTLPEndpoint is host:port without a scheme.
	OTLPEndpoint string
	// OTLPInsecure disables TLS towards the collector. Development only.
	OTLPInsecure bool

	// TraceSamplingRate is the parent-based ratio in [0, 1].
	TraceSamplingRate float64

	// DetailedLabels adds participant counts to availability metrics.
	DetailedLabels bool
}

// DefaultConfig reads the instrumentation settings from the environment.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", "schedsvc"),
		ServiceVersion:    "unknown",
		InstanceID:        envString("OTEL_SERVICE_INSTANCE_ID", ""),
		Enabled:           envBool("INSTRUMENTATION_ENABLED", true),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		TraceSamplingRate: envFloat("OTEL_TRACES_SAMPLER_ARG", 0.1),
		DetailedLabels:    envBool("METRICS_DETAILED_LABELS", false),
	}
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %g", c.TraceSamplingRate)
	}

	switch c.MetricsExporter {
	case ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp metrics exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
		}
	default:
		return fmt.Errorf("unsupported metrics exporter %q (want prometheus, otlp or stdout)", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp tracing exporter; set OTEL_EXPORTER_OTLP_ENDPOINT")
		}
	default:
		return fmt.Errorf("unsupported tracing exporter %q (want otlp, stdout or none)", c.TracingExporter)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envBool and envFloat ignore unparsable values.
func envBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return fallback
}
