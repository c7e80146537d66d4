package timing

import (
	"errors"
	"iter"
)

// LogSeq decorates seq so that every element is logged with the time the
// upstream spent producing it. Time the consumer spends on an element is not
// included. Each traversal numbers its items from 1.
func LogSeq[T any](logger Logger, seq iter.Seq[T], name string, opts ...Option) iter.Seq[T] {
	if logger == nil {
		panic("timing: LogSeq called with nil logger")
	}
	if seq == nil {
		panic("timing: LogSeq called with nil sequence")
	}
	o := buildOptions(opts)
	return func(yield func(T) bool) {
		count := 0
		timer := NewTimerWithClock(name, o.clock)
		for v := range seq {
			timer.Stop()
			count++
			o.record(logger, name, timer.Seconds(), count)
			if !yield(v) {
				return
			}
			timer.Restart()
		}
	}
}

// LogSeq2 is LogSeq for fallible sequences. Pairs carrying a non-nil error are
// forwarded untouched and neither counted nor logged.
func LogSeq2[T any](logger Logger, seq iter.Seq2[T, error], name string, opts ...Option) iter.Seq2[T, error] {
	if logger == nil {
		panic("timing: LogSeq2 called with nil logger")
	}
	if seq == nil {
		panic("timing: LogSeq2 called with nil sequence")
	}
	o := buildOptions(opts)
	return func(yield func(T, error) bool) {
		count := 0
		timer := NewTimerWithClock(name, o.clock)
		for v, err := range seq {
			if err == nil {
				timer.Stop()
				count++
				o.record(logger, name, timer.Seconds(), count)
			}
			if !yield(v, err) {
				return
			}
			timer.Restart()
		}
	}
}

// All adapts a pull iterator for use with range. Iteration ends silently on
// Done; any other error is yielded once and ends the iteration.
func All[T any](it Iterator[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := it.Next()
			if errors.Is(err, Done) {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// FromSlice returns an iterator over the elements of items.
func FromSlice[T any](items []T) Iterator[T] {
	i := 0
	return IteratorFunc[T](func() (T, error) {
		if i >= len(items) {
			var zero T
			return zero, Done
		}
		v := items[i]
		i++
		return v, nil
	})
}

// Collect drains it and returns every item it produced. On failure the items
// read so far are returned together with the error.
func Collect[T any](it Iterator[T]) ([]T, error) {
	var out []T
	for v, err := range All(it) {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
