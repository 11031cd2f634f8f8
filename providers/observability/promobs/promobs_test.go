package promobs

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aix/providers/observability"
)

func gather(t *testing.T, registry *prometheus.Registry, name string) map[string]float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	out := map[string]float64{}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			key := ""
			for _, label := range metric.GetLabel() {
				key += label.GetName() + "=" + label.GetValue() + ";"
			}
			switch {
			case metric.GetCounter() != nil:
				out[key] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				out[key] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestCounter_LabelsFromAttributes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry, "test")

	ctx := context.Background()
	c := metrics.Counter(observability.MetricGenerations)
	c.Add(ctx, 1, observability.String(observability.AttrLLMEndReason, "done-dialect"))
	c.Add(ctx, 2, observability.String(observability.AttrLLMEndReason, "done-dialect"))
	c.Add(ctx, 1, observability.String(observability.AttrLLMEndReason, "abort-client"))

	got := gather(t, registry, "test_"+observability.MetricGenerations)
	assert.Equal(t, map[string]float64{
		"llm_end_reason=abort-client;": 1,
		"llm_end_reason=done-dialect;": 3,
	}, got)
}

func TestCounter_SameInstanceAndMismatchedLabelsIgnored(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry, "test")

	assert.Same(t, metrics.Counter("x_total"), metrics.Counter("x_total"))

	ctx := context.Background()
	metrics.Counter("x_total").Add(ctx, 1, observability.String("a", "1"))
	metrics.Counter("x_total").Add(ctx, 1, observability.String("b", "1"))

	got := gather(t, registry, "test_x_total")
	assert.Equal(t, map[string]float64{"a=1;": 1}, got)
}

func TestHistogram_Records(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := New(registry, "test")

	h := metrics.Histogram(observability.MetricTimeToFirstEvent)
	h.Record(context.Background(), 0.2, observability.String(observability.AttrLLMVendor, "openai"))
	h.Record(context.Background(), 0.4, observability.String(observability.AttrLLMVendor, "openai"))

	got := gather(t, registry, "test_"+observability.MetricTimeToFirstEvent)
	assert.Equal(t, map[string]float64{"llm_vendor=openai;": 2}, got)
}

func TestSharedRegistryReusesCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := New(registry, "test")
	second := New(registry, "test")

	ctx := context.Background()
	first.Counter("shared_total").Add(ctx, 1)
	second.Counter("shared_total").Add(ctx, 1)

	got := gather(t, registry, "test_shared_total")
	assert.Equal(t, map[string]float64{"": 2}, got)
}

func TestAttach_RoutesMetricsOnly(t *testing.T) {
	registry := prometheus.NewRegistry()
	provider := Attach(observability.Nop, New(registry, "test"))

	provider.Counter("attached_total").Add(context.Background(), 4)
	provider.Warn(context.Background(), "still a no-op")

	got := gather(t, registry, "test_attached_total")
	assert.Equal(t, map[string]float64{"": 4}, got)
}
