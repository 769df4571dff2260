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
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

// Config configures the OTLP metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	ServiceVersion   string
	Environment      string
}

func (c Config) serviceName() string {
	if name := strings.TrimSpace(c.ServiceName); name != "" {
		return name
	}
	return "outreach"
}

// Metrics exposes the OTLP-pushed instruments. Batch and item counters are
// scraped from Prometheus instead, see OutreachMetrics.
type Metrics struct {
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
	notifications    metric.Int64Counter
}

// NewProvider registers the global meter provider. With OTLP disabled every
// instrument is a noop.
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
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.serviceName()),
			attribute.String("service.version", cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("flushing meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("otlp metrics enabled",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
		zap.Duration("interval", exportInterval),
	)
	return provider, nil
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter(cfg.serviceName())
	m := &Metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.rateLimitAllowed, "outreach_rate_limit_allowed_total", "Send tokens granted by the shared bucket."},
		{&m.rateLimitDenied, "outreach_rate_limit_denied_total", "Send tokens refused by the shared bucket."},
		{&m.notifications, "outreach_notifications_total", "Operator notifications by outcome."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}
	return m, nil
}

func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, bucket string) {
	if m == nil {
		return
	}
	add(ctx, m.rateLimitAllowed, attribute.String("bucket", strings.TrimSpace(bucket)))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, bucket, reason string) {
	if m == nil {
		return
	}
	add(ctx, m.rateLimitDenied,
		attribute.String("bucket", strings.TrimSpace(bucket)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
}

// RecordNotification counts operator notifications by outcome.
func (m *Metrics) RecordNotification(ctx context.Context, eventType, status string) {
	if m == nil {
		return
	}
	add(ctx, m.notifications,
		attribute.String("event_type", strings.TrimSpace(eventType)),
		attribute.String("status", strings.TrimSpace(status)),
	)
}

func add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	counter.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
}

// Signup ids and emails never become labels.
var allowedLabelKeys = map[attribute.Key]bool{
	"stage":      true,
	"status":     true,
	"bucket":     true,
	"reason":     true,
	"provider":   true,
	"event_type": true,
}

// FilterAttributes drops any label outside the low-cardinality allow list.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := attrs[:0:0]
	for _, attr := range attrs {
		if allowedLabelKeys[attr.Key] {
			filtered = append(filtered, attr)
		}
	}
	return filtered
}
