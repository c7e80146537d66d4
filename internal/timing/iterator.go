package timing

import (
	"errors"
	"fmt"
)

// Done is returned by Iterator.Next when the sequence has no more items.
// It is not an error condition and is never logged.
var Done = errors.New("no more items in iterator")

// Iterator produces items one at a time. Next returns Done once the sequence
// is exhausted; any other error is a failure of the source.
type Iterator[T any] interface {
	Next() (T, error)
}

// IteratorFunc adapts a function to the Iterator interface.
type IteratorFunc[T any] func() (T, error)

// Next calls f.
func (f IteratorFunc[T]) Next() (T, error) {
	return f()
}

// Logger is the logging capability the wrappers need. *slog.Logger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
}

// Observer receives the rounded per-item latency in seconds.
// prometheus.Observer satisfies it.
type Observer interface {
	Observe(seconds float64)
}

// Option configures a logging wrapper.
type Option func(*options)

type options struct {
	clock    Clock
	observer Observer
}

// WithClock replaces the wall clock used to time items.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithObserver reports each item latency to o in addition to the log record.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// LoggingIterator forwards items from a source iterator unchanged and emits
// one warning-level record per item with the time the source took to produce
// it. It is not safe for concurrent use.
type LoggingIterator[T any] struct {
	source Iterator[T]
	name   string
	logger Logger
	count  int
	opts   options
}

// NewLoggingIterator wraps source. The wrapper does not own source or logger
// and never closes either. Passing a nil logger or source panics.
func NewLoggingIterator[T any](logger Logger, source Iterator[T], name string, opts ...Option) *LoggingIterator[T] {
	if logger == nil {
		panic("timing: NewLoggingIterator called with nil logger")
	}
	if source == nil {
		panic("timing: NewLoggingIterator called with nil source")
	}
	return &LoggingIterator[T]{
		source: source,
		name:   name,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

// Next returns the next item of the source. Done and source failures are
// returned exactly as the source reported them, without logging or counting.
func (it *LoggingIterator[T]) Next() (T, error) {
	timer := NewTimerWithClock(it.name, it.opts.clock)
	item, err := it.source.Next()
	if err != nil {
		return item, err
	}
	timer.Stop()
	it.count++
	it.opts.record(it.logger, it.name, timer.Seconds(), it.count)
	return item, nil
}

// Count reports how many items have been returned so far.
func (it *LoggingIterator[T]) Count() int {
	return it.count
}

// Name returns the display name used in log records.
func (it *LoggingIterator[T]) Name() string {
	return it.name
}

func (o options) record(logger Logger, name string, elapsed float64, item int) {
	logger.Warn(
		fmt.Sprintf("%s iterator: %ss for item #%d", name, FormatSeconds(elapsed), item),
		"iterator", name,
		"elapsed_seconds", elapsed,
		"item", item,
	)
	if o.observer != nil {
		o.observer.Observe(elapsed)
	}
}
