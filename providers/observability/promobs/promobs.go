// Package promobs implements observability.Metrics with Prometheus
// collectors. Attribute keys become label names, so every use of one metric
// name must pass the same attribute keys.
package promobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leofalp/aix/providers/observability"
)

// Metrics creates collectors lazily and registers them on first use.
type Metrics struct {
	registerer prometheus.Registerer
	namespace  string

	mu         sync.Mutex
	counters   map[string]*counter
	histograms map[string]*histogram
}

// New returns a Metrics registering on registerer. A nil registerer uses
// prometheus.DefaultRegisterer.
func New(registerer prometheus.Registerer, namespace string) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		registerer: registerer,
		namespace:  namespace,
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
	}
}

var _ observability.Metrics = (*Metrics)(nil)

func (m *Metrics) Counter(name string) observability.Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	c := &counter{parent: m, name: name}
	m.counters[name] = c
	return c
}

func (m *Metrics) Histogram(name string) observability.Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h
	}
	h := &histogram{parent: m, name: name}
	m.histograms[name] = h
	return h
}

type counter struct {
	parent *Metrics
	name   string
	once   sync.Once
	vec    *prometheus.CounterVec
	keys   []string
	err    error
}

func (c *counter) Add(_ context.Context, value int64, attrs ...observability.Attribute) {
	keys, values := labels(attrs)
	c.once.Do(func() {
		c.keys = keys
		c.vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.parent.namespace,
			Name:      c.name,
			Help:      "aix counter " + c.name,
		}, keys)
		c.vec, c.err = register(c.parent.registerer, c.vec)
	})
	if c.err != nil || !sameKeys(c.keys, keys) || value < 0 {
		return
	}
	c.vec.WithLabelValues(values...).Add(float64(value))
}

type histogram struct {
	parent *Metrics
	name   string
	once   sync.Once
	vec    *prometheus.HistogramVec
	keys   []string
	err    error
}

func (h *histogram) Record(_ context.Context, value float64, attrs ...observability.Attribute) {
	keys, values := labels(attrs)
	h.once.Do(func() {
		h.keys = keys
		h.vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: h.parent.namespace,
			Name:      h.name,
			Help:      "aix histogram " + h.name,
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, keys)
		h.vec, h.err = register(h.parent.registerer, h.vec)
	})
	if h.err != nil || !sameKeys(h.keys, keys) {
		return
	}
	h.vec.WithLabelValues(values...).Observe(value)
}

// register registers collector, reusing an identical one already present.
func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) (C, error) {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return collector, err
	}
	return collector, nil
}

// labels sorts attributes by key and sanitises keys into label names.
func labels(attrs []observability.Attribute) ([]string, []string) {
	sorted := append([]observability.Attribute(nil), attrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	keys := make([]string, len(sorted))
	values := make([]string, len(sorted))
	for i, attr := range sorted {
		keys[i] = strings.NewReplacer(".", "_", "-", "_").Replace(attr.Key)
		values[i] = fmt.Sprint(attr.Value)
	}
	return keys, values
}

func sameKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Attach returns base with its metrics served by m. Tracing and logging
// still go to base.
func Attach(base observability.Provider, m *Metrics) observability.Provider {
	return attached{Provider: base, metrics: m}
}

type attached struct {
	observability.Provider
	metrics *Metrics
}

func (a attached) Counter(name string) observability.Counter     { return a.metrics.Counter(name) }
func (a attached) Histogram(name string) observability.Histogram { return a.metrics.Histogram(name) }
