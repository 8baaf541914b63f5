package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	readingsRecorded metric.Int64Counter
	readingsRejected metric.Int64Counter
	meterUsage       metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	amountCollected  metric.Int64Counter
	priceUpdates     metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "berair"
	}
	meter := provider.Meter(name)

	readingsRecorded, err := meter.Int64Counter("berair_readings_recorded_total")
	if err != nil {
		return nil, err
	}
	readingsRejected, err := meter.Int64Counter("berair_readings_rejected_total")
	if err != nil {
		return nil, err
	}
	meterUsage, err := meter.Int64Counter("berair_meter_usage_m3_total", metric.WithUnit("m3"))
	if err != nil {
		return nil, err
	}
	paymentsRecorded, err := meter.Int64Counter("berair_payments_recorded_total")
	if err != nil {
		return nil, err
	}
	amountCollected, err := meter.Int64Counter("berair_amount_collected_total")
	if err != nil {
		return nil, err
	}
	priceUpdates, err := meter.Int64Counter("berair_water_price_updates_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("berair_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		readingsRecorded: readingsRecorded,
		readingsRejected: readingsRejected,
		meterUsage:       meterUsage,
		paymentsRecorded: paymentsRecorded,
		amountCollected:  amountCollected,
		priceUpdates:     priceUpdates,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordReading counts an accepted reading and the usage it contributes.
func (m *Metrics) RecordReading(ctx context.Context, region string, usage int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("region", normalizeRegion(region)))
	m.readingsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
	if usage > 0 {
		m.meterUsage.Add(ctx, usage, metric.WithAttributes(attrs...))
	}
}

// RecordReadingRejected counts readings refused by validation.
func (m *Metrics) RecordReadingRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.readingsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPayment counts a settled bill and the amount collected.
func (m *Metrics) RecordPayment(ctx context.Context, region string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("region", normalizeRegion(region)))
	m.paymentsRecorded.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amount > 0 {
		m.amountCollected.Add(ctx, amount, metric.WithAttributes(attrs...))
	}
}

// RecordPriceUpdate counts changes to the water price.
func (m *Metrics) RecordPriceUpdate(ctx context.Context) {
	if m == nil {
		return
	}
	m.priceUpdates.Add(ctx, 1)
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func normalizeRegion(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return "unknown"
	}
	return region
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"region":      {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
