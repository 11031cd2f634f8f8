package particle

import (
	"math"
	"time"
)

// Metrics holds normalised token counts and timings. Zero values are
// "unknown" and are omitted on the wire.
type Metrics struct {
	// TIn counts input tokens that were neither read from nor written to cache.
	TIn         int `json:"TIn,omitempty"`
	TCacheRead  int `json:"TCacheRead,omitempty"`
	TCacheWrite int `json:"TCacheWrite,omitempty"`
	// TOut includes TOutR.
	TOut  int `json:"TOut,omitempty"`
	TOutR int `json:"TOutR,omitempty"`

	// VTOutInner is the output rate in tokens per second between first and last event.
	VTOutInner float64 `json:"vTOutInner,omitempty"`
	// DtStart is the time to the first event, DtInner the span between the
	// first and last event and DtAll the whole call, all in milliseconds.
	DtStart int64 `json:"dtStart,omitempty"`
	DtInner int64 `json:"dtInner,omitempty"`
	DtAll   int64 `json:"dtAll,omitempty"`
}

// Merge overwrites the fields of m that are set in update.
func (m *Metrics) Merge(update Metrics) {
	setInt(&m.TIn, update.TIn)
	setInt(&m.TCacheRead, update.TCacheRead)
	setInt(&m.TCacheWrite, update.TCacheWrite)
	setInt(&m.TOut, update.TOut)
	setInt(&m.TOutR, update.TOutR)
	if update.VTOutInner != 0 {
		m.VTOutInner = update.VTOutInner
	}
	setInt64(&m.DtStart, update.DtStart)
	setInt64(&m.DtInner, update.DtInner)
	setInt64(&m.DtAll, update.DtAll)
}

// IsZero reports whether no field is set.
func (m Metrics) IsZero() bool {
	return m == Metrics{}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setInt64(dst *int64, v int64) {
	if v != 0 {
		*dst = v
	}
}

// Timing records when a call was dispatched and when its first and latest
// events arrived. Parsers own one per call.
type Timing struct {
	now        func() time.Time
	dispatched time.Time
	first      time.Time
	last       time.Time
}

// NewTiming starts a Timing at the current time.
func NewTiming() *Timing {
	return newTiming(time.Now)
}

func newTiming(now func() time.Time) *Timing {
	return &Timing{now: now, dispatched: now()}
}

// MarkEvent records the arrival of a raw vendor event.
func (t *Timing) MarkEvent() {
	ts := t.now()
	if t.first.IsZero() {
		t.first = ts
	}
	t.last = ts
}

// Fill sets the timing fields of m and derives the inner output rate from m.TOut.
func (t *Timing) Fill(m *Metrics) {
	end := t.now()
	m.DtAll = end.Sub(t.dispatched).Milliseconds()
	if t.first.IsZero() {
		return
	}
	m.DtStart = t.first.Sub(t.dispatched).Milliseconds()
	inner := t.last.Sub(t.first)
	m.DtInner = inner.Milliseconds()
	if m.TOut > 0 && inner > 0 {
		rate := float64(m.TOut) / inner.Seconds()
		m.VTOutInner = math.Round(rate*100) / 100
	}
}
