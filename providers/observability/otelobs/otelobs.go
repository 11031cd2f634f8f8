// Package otelobs implements observability.Provider on OpenTelemetry.
// Spans go to a trace.Tracer and counters and histograms to a metric.Meter.
// Logging is delegated to a separate observability.Logger, since
// OpenTelemetry logs are not part of the stable API.
package otelobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/leofalp/aix/providers/observability"
)

const instrumentationName = "github.com/leofalp/aix"

// Provider adapts OpenTelemetry to observability.Provider.
type Provider struct {
	observability.Logger
	tracer trace.Tracer
	meter  metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

var _ observability.Provider = (*Provider)(nil)

// New returns a Provider. Nil providers fall back to the global otel ones and
// a nil logger discards log records.
func New(tp trace.TracerProvider, mp metric.MeterProvider, logger observability.Logger) *Provider {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = observability.Nop
	}
	return &Provider{
		Logger:     logger,
		tracer:     tp.Tracer(instrumentationName),
		meter:      mp.Meter(instrumentationName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	ctx, s := p.tracer.Start(ctx, name, trace.WithAttributes(convert(attrs)...))
	return ctx, span{s}
}

func (p *Provider) Counter(name string) observability.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.counters[name]
	if !ok {
		var err error
		if c, err = p.meter.Int64Counter(name); err != nil {
			p.Logger.Warn(context.Background(), "otel counter creation failed", observability.Error(err))
			return nopCounter{}
		}
		p.counters[name] = c
	}
	return counter{c}
}

func (p *Provider) Histogram(name string) observability.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.histograms[name]
	if !ok {
		var err error
		if h, err = p.meter.Float64Histogram(name, metric.WithUnit("s")); err != nil {
			p.Logger.Warn(context.Background(), "otel histogram creation failed", observability.Error(err))
			return nopHistogram{}
		}
		p.histograms[name] = h
	}
	return histogram{h}
}

type span struct {
	s trace.Span
}

func (s span) End() { s.s.End() }

func (s span) SetAttributes(attrs ...observability.Attribute) {
	s.s.SetAttributes(convert(attrs)...)
}

func (s span) SetStatus(code observability.StatusCode, description string) {
	switch code {
	case observability.StatusOK:
		s.s.SetStatus(codes.Ok, description)
	case observability.StatusError:
		s.s.SetStatus(codes.Error, description)
	default:
		s.s.SetStatus(codes.Unset, description)
	}
}

func (s span) RecordError(err error) {
	if err != nil {
		s.s.RecordError(err)
	}
}

func (s span) AddEvent(name string, attrs ...observability.Attribute) {
	s.s.AddEvent(name, trace.WithAttributes(convert(attrs)...))
}

type counter struct {
	c metric.Int64Counter
}

func (c counter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	c.c.Add(ctx, value, metric.WithAttributes(convert(attrs)...))
}

type histogram struct {
	h metric.Float64Histogram
}

func (h histogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	h.h.Record(ctx, value, metric.WithAttributes(convert(attrs)...))
}

type nopCounter struct{}

func (nopCounter) Add(context.Context, int64, ...observability.Attribute) {}

type nopHistogram struct{}

func (nopHistogram) Record(context.Context, float64, ...observability.Attribute) {}

// convert maps attribute values onto otel types. Durations become
// milliseconds; anything else unknown is formatted as a string.
func convert(attrs []observability.Attribute) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case []string:
			out = append(out, attribute.StringSlice(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case float64:
			out = append(out, attribute.Float64(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case time.Duration:
			out = append(out, attribute.Int64(a.Key+"_ms", v.Milliseconds()))
		case nil:
			out = append(out, attribute.String(a.Key, ""))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}
