package instrumentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var instrumentationEnv = []string{
	"OTEL_SERVICE_NAME", "OTEL_SERVICE_INSTANCE_ID", "INSTRUMENTATION_ENABLED",
	"METRICS_EXPORTER", "TRACING_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_TRACES_SAMPLER_ARG", "METRICS_DETAILED_LABELS",
}

func clearInstrumentationEnv(t *testing.T) {
	t.Helper()
	for _, key := range instrumentationEnv {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	clearInstrumentationEnv(t)

	cfg := DefaultConfig()
	assert.Equal(t, Config{
		ServiceName:       "schedsvc",
		ServiceVersion:    "unknown",
		Enabled:           true,
		MetricsExporter:   ExporterPrometheus,
		TracingExporter:   ExporterNone,
		TraceSamplingRate: 0.1,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	clearInstrumentationEnv(t)
	t.Setenv("OTEL_SERVICE_NAME", "schedsvc-eu")
	t.Setenv("OTEL_SERVICE_INSTANCE_ID", "schedsvc-7d9f")
	t.Setenv("TRACING_EXPORTER", ExporterOTLP)
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	t.Setenv("METRICS_DETAILED_LABELS", "1")

	cfg := DefaultConfig()
	assert.Equal(t, "schedsvc-eu", cfg.ServiceName)
	assert.Equal(t, "schedsvc-7d9f", cfg.InstanceID)
	assert.Equal(t, ExporterOTLP, cfg.TracingExporter)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.True(t, cfg.OTLPInsecure)
	assert.Equal(t, 0.5, cfg.TraceSamplingRate)
	assert.True(t, cfg.DetailedLabels)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultConfig_IgnoresUnparsableValues(t *testing.T) {
	clearInstrumentationEnv(t)
	t.Setenv("INSTRUMENTATION_ENABLED", "sometimes")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "half")

	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 0.1, cfg.TraceSamplingRate)
}

func TestDefaultConfig_Disabled(t *testing.T) {
	clearInstrumentationEnv(t)
	t.Setenv("INSTRUMENTATION_ENABLED", "false")

	assert.False(t, DefaultConfig().Enabled)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"stdout both", func(c *Config) { c.MetricsExporter, c.TracingExporter = ExporterStdout, ExporterStdout }, ""},
		{"otlp with endpoint", func(c *Config) {
			c.MetricsExporter, c.TracingExporter, c.OTLPEndpoint = ExporterOTLP, ExporterOTLP, "collector:4318"
		}, ""},
		{"negative sampling", func(c *Config) { c.TraceSamplingRate = -0.1 }, "sampling rate"},
		{"empty metrics exporter", func(c *Config) { c.MetricsExporter = "" }, "metrics exporter"},
		{"unknown tracing exporter", func(c *Config) { c.TracingExporter = "zipkin" }, "tracing exporter"},
		{"otlp metrics without endpoint", func(c *Config) { c.MetricsExporter = ExporterOTLP }, "OTLP endpoint"},
		{"otlp tracing without endpoint", func(c *Config) { c.TracingExporter = ExporterOTLP }, "OTLP endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
