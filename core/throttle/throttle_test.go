package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFake(rate float64, level int) (*Decimator, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	d := New(rate, level)
	d.now = clock.now
	return d, clock
}

func TestNew_Interval(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		level int
		want  time.Duration
	}{
		{"disabled", DefaultRate, 0, 0},
		{"base", 10, 1, 100 * time.Millisecond},
		{"level four doubles", 10, 4, 200 * time.Millisecond},
		{"level nine triples", 10, 9, 300 * time.Millisecond},
		{"zero rate disables", 0, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.rate, tt.level).Interval())
		})
	}
}

func TestDecimate_LevelZeroCallsEveryTime(t *testing.T) {
	d, _ := newFake(DefaultRate, 0)
	calls := 0
	for range 100 {
		assert.True(t, d.Decimate(func() { calls++ }))
	}
	assert.Equal(t, 100, calls)
}

func TestDecimate_SkipsUntilInterval(t *testing.T) {
	d, clock := newFake(10, 1)
	calls := 0
	fn := func() { calls++ }

	assert.True(t, d.Decimate(fn))
	clock.advance(50 * time.Millisecond)
	assert.False(t, d.Decimate(fn))
	clock.advance(49 * time.Millisecond)
	assert.False(t, d.Decimate(fn))
	clock.advance(time.Millisecond)
	assert.True(t, d.Decimate(fn))
	assert.Equal(t, 2, calls)
}

func TestDecimate_WorkTimeCountsAgainstInterval(t *testing.T) {
	d, clock := newFake(10, 1)
	assert.True(t, d.Decimate(func() { clock.advance(70 * time.Millisecond) }))

	clock.advance(29 * time.Millisecond)
	assert.False(t, d.Decimate(func() {}))
	clock.advance(time.Millisecond)
	assert.True(t, d.Decimate(func() {}))
}

func TestDecimate_IdleFloor(t *testing.T) {
	d, clock := newFake(10, 1)
	assert.True(t, d.Decimate(func() { clock.advance(500 * time.Millisecond) }))

	clock.advance(IdleFloor - time.Millisecond)
	assert.False(t, d.Decimate(func() {}), "slow callbacks still leave the idle floor")
	clock.advance(time.Millisecond)
	assert.True(t, d.Decimate(func() {}))
}

func TestDecimate_NoTwoCallsCloserThanFloor(t *testing.T) {
	for _, level := range []int{1, 2, 5, 50} {
		d, clock := newFake(1000, level)
		var last time.Time
		for range 500 {
			clock.advance(3 * time.Millisecond)
			d.Decimate(func() {
				if !last.IsZero() {
					assert.GreaterOrEqual(t, clock.t.Sub(last), IdleFloor)
				}
				last = clock.t
			})
		}
	}
}
