package timing

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSeqForwardsAndLogs(t *testing.T) {
	logger := &recordingLogger{}
	clock := newStepClock(0, 5*time.Millisecond)

	seq := LogSeq(logger, slices.Values([]string{"a", "b"}), "seq", WithClock(clock.Now))

	assert.Equal(t, []string{"a", "b"}, slices.Collect(seq))
	assert.Equal(t, []string{
		"seq iterator: 0.0s for item #1",
		"seq iterator: 0.005s for item #2",
	}, logger.messages)
}

func TestLogSeqRestartsCountPerTraversal(t *testing.T) {
	logger := &recordingLogger{}
	seq := LogSeq(logger, slices.Values([]int{1, 2}), "again")

	_ = slices.Collect(seq)
	_ = slices.Collect(seq)

	require.Len(t, logger.messages, 4)
	assert.Contains(t, logger.messages[2], "item #1")
	assert.Contains(t, logger.messages[3], "item #2")
}

func TestLogSeqEarlyBreak(t *testing.T) {
	logger := &recordingLogger{}
	pulled := 0
	upstream := func(yield func(int) bool) {
		for i := range 10 {
			pulled++
			if !yield(i) {
				return
			}
		}
	}

	for v := range LogSeq(logger, upstream, "partial") {
		if v == 2 {
			break
		}
	}

	assert.Equal(t, 3, pulled)
	assert.Len(t, logger.messages, 3)
}

func TestLogSeqExcludesConsumerTime(t *testing.T) {
	logger := &recordingLogger{}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	for range LogSeq(logger, slices.Values([]int{1, 2}), "consumer", WithClock(clock)) {
		now = now.Add(time.Second)
	}

	assert.Equal(t, []string{
		"consumer iterator: 0.0s for item #1",
		"consumer iterator: 0.0s for item #2",
	}, logger.messages)
}

func TestLogSeq2SkipsErrors(t *testing.T) {
	boom := errors.New("bad row")
	upstream := func(yield func(string, error) bool) {
		if !yield("ok", nil) {
			return
		}
		if !yield("", boom) {
			return
		}
		yield("also ok", nil)
	}
	logger := &recordingLogger{}

	var items []string
	var errs []error
	for v, err := range LogSeq2(logger, upstream, "mixed") {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		items = append(items, v)
	}

	assert.Equal(t, []string{"ok", "also ok"}, items)
	require.Len(t, errs, 1)
	assert.Same(t, boom, errs[0])
	require.Len(t, logger.messages, 2)
	assert.Contains(t, logger.messages[1], "item #2")
}

func TestAllStopsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	src := &failingIterator{items: []string{"a", "b", "c"}, failAt: 2, err: boom}

	var got []string
	var gotErr error
	for v, err := range All[string](src) {
		if err != nil {
			gotErr = err
			continue
		}
		got = append(got, v)
	}

	assert.Equal(t, []string{"a"}, got)
	assert.Same(t, boom, gotErr)
	assert.Equal(t, 2, src.calls)
}

func TestCollectReturnsPartialResults(t *testing.T) {
	boom := errors.New("boom")
	src := &failingIterator{items: []string{"a", "b"}, failAt: 2, err: boom}

	got, err := Collect[string](src)

	assert.Equal(t, []string{"a"}, got)
	assert.ErrorIs(t, err, boom)
}

func TestLogSeqRequiresCollaborators(t *testing.T) {
	assert.Panics(t, func() { LogSeq[int](nil, slices.Values([]int{1}), "x") })
	assert.Panics(t, func() { LogSeq[int](&recordingLogger{}, nil, "x") })
	assert.Panics(t, func() { LogSeq2[int](nil, nil, "x") })
}
