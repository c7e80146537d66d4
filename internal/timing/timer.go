// Package timing provides stopwatch utilities and iterator wrappers that log
// how long each item took to arrive.
package timing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Clock returns the current time. time.Now is used when none is supplied.
type Clock func() time.Time

// Timer measures wall-clock time between creation (or Restart) and Stop.
type Timer struct {
	now      Clock
	start    time.Time
	name     string
	duration time.Duration
}

// NewNamedTimer creates a new timer with the given name.
func NewNamedTimer(name string) *Timer {
	return NewTimerWithClock(name, nil)
}

// NewTimerWithClock creates a named timer reading time from clock.
func NewTimerWithClock(name string, clock Clock) *Timer {
	if clock == nil {
		clock = time.Now
	}
	return &Timer{
		now:   clock,
		name:  name,
		start: clock(),
	}
}

// Restart resets the start time and clears the recorded duration.
func (t *Timer) Restart() {
	t.start = t.now()
	t.duration = 0
}

// Stop stops the timer and returns the elapsed duration.
// A clock that moves backwards yields zero rather than a negative duration.
func (t *Timer) Stop() time.Duration {
	t.duration = max(t.now().Sub(t.start), 0)
	return t.duration
}

// Duration returns the recorded duration (only valid after Stop()).
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Seconds returns the recorded duration in seconds rounded to milliseconds.
func (t *Timer) Seconds() float64 {
	return RoundSeconds(t.duration)
}

// Name returns the timer name (empty string if unnamed).
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted string representation of the timer.
func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return fmt.Sprintf("%v", t.duration)
}

// RoundSeconds converts d to seconds rounded to three decimal places.
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// FormatSeconds renders seconds with the shortest representation that still
// carries a fractional part, so whole values print as "0.0" or "2.0".
func FormatSeconds(s float64) string {
	out := strconv.FormatFloat(s, 'f', -1, 64)
	if !strings.ContainsAny(out, ".IN") {
		out += ".0"
	}
	return out
}
