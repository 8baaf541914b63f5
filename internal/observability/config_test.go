package observability

import (
	"testing"

	"github.com/smallbiznis/berair/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: "production",
		Telemetry:   config.TelemetryConfig{OTLPEndpoint: "collector:4317"},
	})

	assert.Equal(t, "berair", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.False(t, cfg.OtelEnabled)
	assert.False(t, cfg.Debug())
}

func TestLoadConfigNormalizesTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName: "berair-api",
		Telemetry: config.TelemetryConfig{
			LogFormat:     "Console",
			OtelEnabled:   true,
			OTLPProtocol:  "http/protobuf",
			SamplingRatio: 3,
		},
	})

	assert.Equal(t, "berair-api", cfg.ServiceName)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, 1.0, cfg.OtelSamplingRatio)
	assert.False(t, cfg.OtelEnabled, "export needs an endpoint")
}

func TestDebugInDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "development", LogLevel: "info"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "DEBUG"}.Debug())
	assert.False(t, Config{Environment: "production", LogLevel: "info"}.Debug())
}

func TestSplitConfigSharesServiceIdentity(t *testing.T) {
	out := splitConfig(Config{
		ServiceName:          "berair",
		Environment:          "test",
		Version:              "1.2.3",
		LogLevel:             "info",
		OtelEnabled:          true,
		OtelExporterEndpoint: "collector:4317",
		OtelExporterProtocol: "grpc",
		OtelSamplingRatio:    0.5,
	})

	assert.True(t, out.Logger.Debug)
	assert.Equal(t, "1.2.3", out.Tracing.ServiceVersion)
	assert.Equal(t, 0.5, out.Tracing.SamplingRatio)
	assert.True(t, out.Metrics.Enabled)
	assert.Equal(t, "collector:4317", out.Metrics.ExporterEndpoint)
}
