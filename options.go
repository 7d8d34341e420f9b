package queueprocessor

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// options holds configuration for processor creation.
type options struct {
	scheduler  Scheduler
	logger     *logiface.Logger[logiface.Event]
	limiter    *catrate.Limiter
	delay      time.Duration
	batchSize  int
	startIndex int
}

// Option configures a processor, see [NewSequential] and [NewBatch].
type Option interface {
	apply(*options) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*options) error
}

func (o *optionImpl) apply(opts *options) error {
	return o.applyFunc(opts)
}

// WithBatchSize sets the number of items consumed per tick, by [Batch].
// Values <= 0 (the default) select [AdaptiveBatchSize]. It has no effect on
// [Sequential], which always consumes one item per tick.
func WithBatchSize(size int) Option {
	return &optionImpl{func(opts *options) error {
		opts.batchSize = size
		return nil
	}}
}

// WithStartIndex sets the initial cursor position. Defaults to 0.
func WithStartIndex(index int) Option {
	return &optionImpl{func(opts *options) error {
		if index < 0 {
			return fmt.Errorf("%w: negative start index: %d", ErrInvalidOption, index)
		}
		opts.startIndex = index
		return nil
	}}
}

// WithDelay sets the delay between ticks. Defaults to 0. The delay throttles
// the run, it does not bound its total duration.
func WithDelay(delay time.Duration) Option {
	return &optionImpl{func(opts *options) error {
		if delay < 0 {
			return fmt.Errorf("%w: negative delay: %s", ErrInvalidOption, delay)
		}
		opts.delay = delay
		return nil
	}}
}

// WithScheduler replaces the default [TimeoutScheduler].
func WithScheduler(scheduler Scheduler) Option {
	return &optionImpl{func(opts *options) error {
		if scheduler == nil {
			return fmt.Errorf("%w: nil scheduler", ErrInvalidOption)
		}
		opts.scheduler = scheduler
		return nil
	}}
}

// WithLogger enables structured logging. Logging is disabled by default.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *options) error {
		opts.logger = logger
		return nil
	}}
}

// WithErrorLogLimiter rate limits the warning logged for each failed item,
// using the processor as the category. The limiter may be shared between
// processors. By default, every failure is logged (if a logger is set).
func WithErrorLogLimiter(limiter *catrate.Limiter) Option {
	return &optionImpl{func(opts *options) error {
		opts.limiter = limiter
		return nil
	}}
}

// resolveOptions applies Option instances to options.
func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
