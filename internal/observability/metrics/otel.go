package metrics

import (
	"context"
	"errors"
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

const meterName = "doorcalc"

var errUnsupportedProtocol = errors.New("unsupported_otlp_protocol")

// NewMeterProvider configures OTLP metric export and registers the provider
// globally. Database client metrics from the gorm instrumentation flow here.
func NewMeterProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.OtelEnabled || strings.TrimSpace(cfg.ExporterEndpoint) == "" {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("otlp metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	default:
		return nil, errUnsupportedProtocol
	}
}

// RateLimitMetrics counts document rate limiter decisions.
type RateLimitMetrics struct {
	allowed metric.Int64Counter
	denied  metric.Int64Counter
}

func NewRateLimitMetrics(provider metric.MeterProvider) (*RateLimitMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	allowed, err := meter.Int64Counter("doorcalc_document_rate_limit_allowed_total",
		metric.WithDescription("Document requests let through by the rate limiter."))
	if err != nil {
		return nil, err
	}
	denied, err := meter.Int64Counter("doorcalc_document_rate_limit_denied_total",
		metric.WithDescription("Document requests rejected or failed open by the rate limiter."))
	if err != nil {
		return nil, err
	}

	return &RateLimitMetrics{allowed: allowed, denied: denied}, nil
}

func (m *RateLimitMetrics) RecordAllowed(ctx context.Context, route string) {
	if m == nil {
		return
	}
	m.allowed.Add(ctx, 1, metric.WithAttributes(attribute.String("route", route)))
}

// RecordDenied uses reason "limited" for rejections and "error" for limiter failures.
func (m *RateLimitMetrics) RecordDenied(ctx context.Context, route, reason string) {
	if m == nil {
		return
	}
	m.denied.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("reason", reason),
	))
}
