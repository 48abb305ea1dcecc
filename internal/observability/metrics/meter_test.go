package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fieldbook/fieldbook/internal/idempotent"
)

func TestIdempotencyObserver_CountsOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m := NewWithMeter(provider.Meter("test"))

	obs, err := NewIdempotencyObserver(m)
	require.NoError(t, err)

	ctx := context.Background()
	obs.Observe(ctx, "daily_report", idempotent.OutcomeCreated, 20*time.Millisecond)
	obs.Observe(ctx, "daily_report", idempotent.OutcomeExisting, 2*time.Millisecond)
	obs.Observe(ctx, "daily_report", idempotent.OutcomeExisting, 3*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sum, ok := findMetric(rm, "fieldbook.idempotent.outcomes").Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, sum.DataPoints, 2)

	hist, ok := findMetric(rm, "fieldbook.idempotent.duration").Data.(metricdata.Histogram[float64])
	require.True(t, ok)

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func findMetric(rm metricdata.ResourceMetrics, name string) metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m
			}
		}
	}
	return metricdata.Metrics{}
}

func TestNew_Disabled(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false}, "fieldbook")
	require.NoError(t, err)

	_, err = m.CreateCounter("x", "y")
	assert.NoError(t, err)
}

func TestNew_EnabledInstallsSDKProvider(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	m, err := New(context.Background(), Config{Enabled: true}, "fieldbook")
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		// No collector is listening; only the provider teardown matters here.
		_ = m.Shutdown(ctx)
	})

	_, isNoop := m.meter.(noop.Meter)
	assert.False(t, isNoop)
	assert.Same(t, m.provider, otel.GetMeterProvider())
}

func TestNew_EnabledExportsObservations(t *testing.T) {
	prev := otel.GetMeterProvider()
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	m, err := newWithReader(ctx, reader, "fieldbook")
	require.NoError(t, err)
	defer func() { assert.NoError(t, m.Shutdown(ctx)) }()

	obs, err := NewIdempotencyObserver(m)
	require.NoError(t, err)
	obs.Observe(ctx, "daily_report", idempotent.OutcomeRaceRecovered, time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, "fieldbook.idempotent.outcomes", findMetric(rm, "fieldbook.idempotent.outcomes").Name)
}

func TestMeter_ShutdownWithoutProvider(t *testing.T) {
	m, err := New(context.Background(), Config{Enabled: false}, "fieldbook")
	require.NoError(t, err)
	assert.NoError(t, m.Shutdown(context.Background()))
}
