package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"rmf-simulator/internal/model"
)

func TestOTLPSink_Write(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	s, err := newOTLPSink(reader, resource.Empty())
	require.NoError(t, err)

	batch := testBatch("b1", 1)
	batch.Samples = append(batch.Samples, model.MetricSample{
		Timestamp: batch.Tick, Sysplex: "SYSPLEX01", LPAR: "PROD01", Metric: model.MetricLDEVResponseTime,
		Labels: []model.Label{{Name: model.LabelDeviceType, Value: "tape"}, {Name: model.LabelDeviceID, Value: "tape001"}},
		Value:  45,
	})
	require.NoError(t, s.Write(context.Background(), batch))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := make(map[string]metricdata.Metrics)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	cpu, ok := byName["rmf_cpu_utilization_percent"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, cpu.DataPoints, 1)
	assert.Equal(t, 40.0, cpu.DataPoints[0].Value)
	v, ok := cpu.DataPoints[0].Attributes.Value(attribute.Key(model.LabelCPUType))
	require.True(t, ok)
	assert.Equal(t, "general_purpose", v.AsString())

	resp, ok := byName["rmf_ldev_response_time_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, resp.DataPoints, 1)
	assert.Equal(t, uint64(1), resp.DataPoints[0].Count)
	assert.InDelta(t, 0.045, resp.DataPoints[0].Sum, 1e-12)

	require.NoError(t, s.Close(context.Background()))
}
