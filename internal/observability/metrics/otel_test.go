package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Sum[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				return sum
			}
		}
	}
	t.Fatalf("metric %s not collected", name)
	return metricdata.Sum[int64]{}
}

func TestRateLimitMetrics_RecordsDecisions(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := NewRateLimitMetrics(provider)
	require.NoError(t, err)

	ctx := context.Background()
	route := "/api/orders/:id/documents/quote.pdf"
	m.RecordAllowed(ctx, route)
	m.RecordAllowed(ctx, route)
	m.RecordDenied(ctx, route, "limited")

	allowed := collectSum(t, reader, "doorcalc_document_rate_limit_allowed_total")
	require.Len(t, allowed.DataPoints, 1)
	assert.Equal(t, int64(2), allowed.DataPoints[0].Value)

	denied := collectSum(t, reader, "doorcalc_document_rate_limit_denied_total")
	require.Len(t, denied.DataPoints, 1)
	reason, ok := denied.DataPoints[0].Attributes.Value(attribute.Key("reason"))
	require.True(t, ok)
	assert.Equal(t, "limited", reason.AsString())
}

func TestRateLimitMetrics_NilIsSafe(t *testing.T) {
	var m *RateLimitMetrics
	assert.NotPanics(t, func() {
		m.RecordAllowed(context.Background(), "/x")
		m.RecordDenied(context.Background(), "/x", "error")
	})
}

func TestNewMeterProvider_DisabledIsNoop(t *testing.T) {
	provider, err := NewMeterProvider(nil, Config{}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, provider)

	_, err = newExporter("kafka", "localhost:4317")
	assert.ErrorIs(t, err, errUnsupportedProtocol)
}
