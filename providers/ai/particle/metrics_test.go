package particle

import (
	"testing"
	"time"
)

func TestMetricsMerge(t *testing.T) {
	m := Metrics{TIn: 10, TOut: 1}
	m.Merge(Metrics{TOut: 7, TCacheRead: 4})
	want := Metrics{TIn: 10, TOut: 7, TCacheRead: 4}
	if m != want {
		t.Errorf("got %+v, want %+v", m, want)
	}
	if !(Metrics{}).IsZero() || m.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestTimingFill(t *testing.T) {
	base := time.Unix(0, 0)
	ticks := []time.Duration{0, 200 * time.Millisecond, 1200 * time.Millisecond, 1300 * time.Millisecond}
	i := 0
	now := func() time.Time {
		ts := base.Add(ticks[i])
		i++
		return ts
	}

	timing := newTiming(now)
	timing.MarkEvent()
	timing.MarkEvent()
	m := Metrics{TOut: 50}
	timing.Fill(&m)

	if m.DtStart != 200 || m.DtInner != 1000 || m.DtAll != 1300 {
		t.Errorf("got %+v", m)
	}
	if m.VTOutInner != 50 {
		t.Errorf("got rate %v, want 50", m.VTOutInner)
	}
}

func TestTimingFill_NoEvents(t *testing.T) {
	base := time.Unix(0, 0)
	calls := 0
	timing := newTiming(func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	})
	var m Metrics
	timing.Fill(&m)
	if m.DtAll != 1000 || m.DtStart != 0 || m.VTOutInner != 0 {
		t.Errorf("got %+v", m)
	}
}
