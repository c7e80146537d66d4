package timing

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestLoggingIterator_ForwardsEverything verifies items pass through in order
// with one numbered record each.
func TestLoggingIterator_ForwardsEverything(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output equals input and records are numbered 1..N", prop.ForAll(
		func(items []int) bool {
			logger := &recordingLogger{}
			got, err := Collect[int](NewLoggingIterator[int](logger, FromSlice(items), "prop"))
			if err != nil || len(got) != len(items) || !slices.Equal(got, items) {
				return false
			}
			if len(logger.messages) != len(items) {
				return false
			}
			for i, args := range logger.args {
				if args[5] != i+1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}

// TestLoggingIterator_FailureAtAttempt verifies a failure on attempt k leaves
// exactly k-1 records and surfaces the upstream error.
func TestLoggingIterator_FailureAtAttempt(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("k-1 records before the failure", prop.ForAll(
		func(n, k int) bool {
			if k > n+1 {
				return true
			}
			items := make([]string, n)
			for i := range items {
				items[i] = fmt.Sprint(i)
			}
			boom := errors.New("boom")
			logger := &recordingLogger{}
			it := NewLoggingIterator[string](logger, &failingIterator{items: items, failAt: k, err: boom}, "fail")

			got, err := Collect[string](it)
			return err == boom && len(got) == k-1 && len(logger.messages) == k-1
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 31),
	))

	properties.TestingRun(t)
}

// TestLoggingIterator_ElapsedRounded verifies reported durations are never
// negative and carry at most three decimals.
func TestLoggingIterator_ElapsedRounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("elapsed >= 0 with millisecond precision", prop.ForAll(
		func(delayNanos int64) bool {
			logger := &recordingLogger{}
			clock := newStepClock(time.Duration(delayNanos))
			it := NewLoggingIterator[int](logger, FromSlice([]int{1}), "clock", WithClock(clock.Now))
			if _, err := Collect[int](it); err != nil {
				return false
			}

			elapsed, ok := logger.args[0][3].(float64)
			if !ok || elapsed < 0 {
				return false
			}
			return math.Abs(math.Round(elapsed*1000)/1000-elapsed) < 1e-12
		},
		gen.Int64Range(-int64(time.Second), int64(10*time.Minute)),
	))

	properties.TestingRun(t)
}
