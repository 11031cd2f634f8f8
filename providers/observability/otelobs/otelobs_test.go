package otelobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/leofalp/aix/providers/observability"
)

func newTestProvider(t *testing.T) (*Provider, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	return New(tp, mp, nil), recorder, reader
}

func TestSpan_Lifecycle(t *testing.T) {
	p, recorder, _ := newTestProvider(t)

	ctx, parent := p.StartSpan(context.Background(), observability.SpanChatGenerate,
		observability.String(observability.AttrLLMDialect, "anthropic"),
		observability.Bool(observability.AttrLLMStreaming, true),
	)
	_, child := p.StartSpan(ctx, observability.SpanLLMRequest)
	child.AddEvent(observability.EventFirstEvent, observability.String(observability.AttrLLMEventName, "message_start"))
	child.End()

	parent.SetAttributes(
		observability.Int(observability.AttrFragmentsCount, 2),
		observability.StringSlice(observability.AttrLLMHotfix, []string{"a", "b"}),
		observability.Duration(observability.AttrDuration, 1500*time.Millisecond),
	)
	parent.RecordError(errors.New("boom"))
	parent.SetStatus(observability.StatusError, "issue-rpc")
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	childSpan, parentSpan := spans[0], spans[1]

	assert.Equal(t, observability.SpanLLMRequest, childSpan.Name())
	assert.Equal(t, parentSpan.SpanContext().SpanID(), childSpan.Parent().SpanID())
	require.Len(t, childSpan.Events(), 1)
	assert.Equal(t, observability.EventFirstEvent, childSpan.Events()[0].Name)

	assert.Equal(t, codes.Error, parentSpan.Status().Code)
	assert.Equal(t, "issue-rpc", parentSpan.Status().Description)
	assert.Subset(t, parentSpan.Attributes(), []attribute.KeyValue{
		attribute.String(observability.AttrLLMDialect, "anthropic"),
		attribute.Bool(observability.AttrLLMStreaming, true),
		attribute.Int(observability.AttrFragmentsCount, 2),
		attribute.StringSlice(observability.AttrLLMHotfix, []string{"a", "b"}),
		attribute.Int64(observability.AttrDuration+"_ms", 1500),
	})
	var sawException bool
	for _, e := range parentSpan.Events() {
		sawException = sawException || e.Name == "exception"
	}
	assert.True(t, sawException, "RecordError adds an exception event")
}

func TestMetrics_CounterAndHistogram(t *testing.T) {
	p, _, reader := newTestProvider(t)
	ctx := context.Background()

	c := p.Counter(observability.MetricGenerations)
	c.Add(ctx, 1, observability.String(observability.AttrLLMEndReason, "done-dialect"))
	p.Counter(observability.MetricGenerations).Add(ctx, 2, observability.String(observability.AttrLLMEndReason, "done-dialect"))
	p.Histogram(observability.MetricTimeToFirstEvent).Record(ctx, 0.25)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sum, ok := byName[observability.MetricGenerations].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	reason, _ := sum.DataPoints[0].Attributes.Value(observability.AttrLLMEndReason)
	assert.Equal(t, "done-dialect", reason.AsString())

	hist, ok := byName[observability.MetricTimeToFirstEvent].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, "s", byName[observability.MetricTimeToFirstEvent].Unit)
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, nil, nil)
	ctx, s := p.StartSpan(context.Background(), "noop")
	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() {
		s.SetStatus(observability.StatusOK, "")
		s.End()
		p.Counter("c").Add(ctx, 1)
		p.Info(ctx, "discarded")
	})
}

func TestConvert(t *testing.T) {
	got := convert([]observability.Attribute{
		observability.Int64("i64", 7),
		observability.Float64("f", 0.5),
		observability.Error(errors.New("e")),
		{Key: "n", Value: nil},
		{Key: "other", Value: struct{ A int }{1}},
	})
	assert.Equal(t, []attribute.KeyValue{
		attribute.Int64("i64", 7),
		attribute.Float64("f", 0.5),
		attribute.String(observability.AttrError, "e"),
		attribute.String("n", ""),
		attribute.String("other", "{1}"),
	}, got)
}
