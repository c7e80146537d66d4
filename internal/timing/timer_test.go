package timing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("test_timer")
	assert.Equal(t, "test_timer", timer.Name())

	// Sleep for a short duration
	time.Sleep(10 * time.Millisecond)

	duration := timer.Stop()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)
	assert.Equal(t, duration, timer.Duration())

	str := timer.String()
	assert.Contains(t, str, "test_timer")
	assert.Contains(t, str, "ms")
}

func TestTimerRestart(t *testing.T) {
	clock := newStepClock(3*time.Second, 250*time.Millisecond)
	timer := NewTimerWithClock("", clock.Now)

	assert.Equal(t, 3*time.Second, timer.Stop())
	timer.Restart()
	assert.Equal(t, time.Duration(0), timer.Duration())
	assert.Equal(t, 250*time.Millisecond, timer.Stop())
	assert.InDelta(t, 0.25, timer.Seconds(), 1e-12)
	assert.Equal(t, "250ms", timer.String())
}

func TestRoundSeconds(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want float64
	}{
		{0, 0},
		{499 * time.Microsecond, 0},
		{500 * time.Microsecond, 0.001},
		{1234567 * time.Microsecond, 1.235},
		{90 * time.Second, 90},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RoundSeconds(tt.in), 1e-12, "input %v", tt.in)
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := map[float64]string{
		0:     "0.0",
		2:     "2.0",
		0.125: "0.125",
		1.5:   "1.5",
		0.001: "0.001",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatSeconds(in))
	}
	assert.Equal(t, "NaN", FormatSeconds(math.NaN()))
	assert.Equal(t, "+Inf", FormatSeconds(math.Inf(1)))
}
