package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/outreach/internal/observability/logger"
	"github.com/smallbiznis/outreach/internal/observability/metrics"
	"github.com/smallbiznis/outreach/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		logger.ConfigFromApp,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		provideOutreachMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideOutreachMetrics(cfg metrics.Config) *metrics.OutreachMetrics {
	return metrics.NewOutreachMetrics(prometheus.DefaultRegisterer, cfg)
}
