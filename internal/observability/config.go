package observability

import (
	"strings"

	"github.com/smallbiznis/berair/internal/config"
)

const defaultServiceName = "berair"

// Config is the telemetry view of the application config shared by the
// logger, tracer and metrics providers.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	t := cfg.Telemetry
	logFormat := strings.ToLower(strings.TrimSpace(t.LogFormat))
	if logFormat != "console" {
		logFormat = "json"
	}
	logLevel := strings.ToLower(strings.TrimSpace(t.LogLevel))
	if logLevel == "" {
		logLevel = "info"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             logLevel,
		LogFormat:            logFormat,
		OtelEnabled:          t.OtelEnabled && strings.TrimSpace(t.OTLPEndpoint) != "",
		OtelExporterEndpoint: strings.TrimSpace(t.OTLPEndpoint),
		OtelExporterProtocol: exporterProtocol(t.OTLPProtocol),
		OtelSamplingRatio:    clampRatio(t.SamplingRatio),
	}
}

// Debug turns on development logging, gorm query logs and gin debug mode.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func exporterProtocol(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "http", "http/protobuf":
		return "http"
	default:
		return "grpc"
	}
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	default:
		return ratio
	}
}
