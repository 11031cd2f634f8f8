package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/leofalp/aix/providers/observability"
	"github.com/leofalp/aix/providers/observability/otelobs"
	"github.com/leofalp/aix/providers/observability/promobs"
)

// telemetry wires the optional span and metric reports of one command run.
type telemetry struct {
	registry *prometheus.Registry
	tp       *sdktrace.TracerProvider
	spans    *tracetest.SpanRecorder
}

// observe wraps base with an OpenTelemetry tracer when trace is set and a
// Prometheus registry when metrics is set.
func observe(base observability.Provider, trace, metrics bool) (observability.Provider, *telemetry) {
	t := &telemetry{}
	observer := base
	if trace {
		t.spans = tracetest.NewSpanRecorder()
		t.tp = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(t.spans))
		observer = otelobs.New(t.tp, nil, base)
	}
	if metrics {
		t.registry = prometheus.NewRegistry()
		observer = promobs.Attach(observer, promobs.New(t.registry, ""))
	}
	return observer, t
}

// report writes the recorded spans and metrics to w.
func (t *telemetry) report(ctx context.Context, w io.Writer) error {
	if t.tp != nil {
		if err := t.tp.ForceFlush(ctx); err != nil {
			return err
		}
		for _, s := range t.spans.Ended() {
			fmt.Fprintf(w, "span %-20s %8s %s\n", s.Name(), s.EndTime().Sub(s.StartTime()).Round(time.Microsecond), s.Status().Code)
			for _, e := range s.Events() {
				fmt.Fprintf(w, "  +%-10s %s\n", e.Time.Sub(s.StartTime()).Round(time.Microsecond), e.Name)
			}
		}
		if err := t.tp.Shutdown(ctx); err != nil {
			return err
		}
	}
	if t.registry != nil {
		families, err := t.registry.Gather()
		if err != nil {
			return err
		}
		for _, family := range families {
			if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
				return err
			}
		}
	}
	return nil
}
