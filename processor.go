package queueprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
)

var processorIDCounter atomic.Uint64

// processor implements the tick protocol shared by [Sequential] and [Batch],
// and the future-like surface, backed by a [Broadcaster].
//
// All fields other than state and observers are accessed only from ticks,
// and promise handlers, which the loop runs serially.
type processor[T any] struct {
	started   time.Time
	items     *[]T
	scheduler Scheduler
	observers *Broadcaster[[]T]
	logger    *logiface.Logger[logiface.Event]
	limiter   *catrate.Limiter

	// step processes at least one item, from the cursor, which it must
	// advance, then call next, exactly once.
	step func(next func())

	errors   []*ItemError[T]
	kind     string
	delay    time.Duration
	cursor   int
	ticks    int
	id       uint64
	state    atomic.Int32
	finished bool
}

func (x *processor[T]) init(js *eventloop.JS, items *[]T, kind string, cfg *options) error {
	if js == nil {
		return errors.New(`queueprocessor: nil js`)
	}
	if items == nil {
		return errors.New(`queueprocessor: nil items`)
	}
	x.id = processorIDCounter.Add(1)
	x.kind = kind
	x.items = items
	x.cursor = cfg.startIndex
	x.delay = cfg.delay
	x.scheduler = cfg.scheduler
	if x.scheduler == nil {
		x.scheduler = TimeoutScheduler(js)
	}
	x.logger = cfg.logger
	x.limiter = cfg.limiter
	x.observers = NewBroadcaster[[]T](js, cfg.logger)
	return nil
}

// start schedules the first tick. It must be called once, after init, and
// after step is set.
func (x *processor[T]) start(batchSize int) error {
	x.started = time.Now()
	x.logger.Debug().
		Uint64(`processor`, x.id).
		Str(`kind`, x.kind).
		Int(`items`, len(*x.items)).
		Int(`start`, x.cursor).
		Int(`batch`, batchSize).
		Dur(`delay`, x.delay).
		Log(`processor started`)
	x.state.Store(int32(StateScheduled))
	if err := x.scheduler.ScheduleAfter(x.delay, x.tick); err != nil {
		return fmt.Errorf("%w: %w", ErrSchedule, err)
	}
	return nil
}

// scheduleTick is the continuation passed to step.
func (x *processor[T]) scheduleTick() {
	x.state.Store(int32(StateScheduled))
	if err := x.scheduler.ScheduleAfter(x.delay, x.tick); err != nil {
		x.logger.Err().
			Uint64(`processor`, x.id).
			Int(`cursor`, x.cursor).
			Err(err).
			Log(`tick scheduling failed`)
		x.settle(fmt.Errorf("%w: %w", ErrSchedule, err))
	}
}

// tick evaluates the termination condition, which is the only place it is
// evaluated, then either finishes, or advances via step.
func (x *processor[T]) tick() {
	if x.finished {
		return
	}
	if x.cursor >= len(*x.items) {
		x.finish()
		return
	}
	x.ticks++
	x.state.Store(int32(StateAdvancing))
	x.step(x.scheduleTick)
}

// recordError normalizes and accumulates a failure.
func (x *processor[T]) recordError(item T, raw any, index int) *ItemError[T] {
	err := newItemError(item, raw, index)
	x.errors = append(x.errors, err)
	if b := x.logger.Warning(); b.Enabled() {
		if _, ok := x.limiter.Allow(x.id); ok {
			b.Uint64(`processor`, x.id).
				Int(`index`, index).
				Err(err).
				Log(`item failed`)
		} else {
			b.Release()
		}
	}
	return err
}

// await calls done after promise settles, recording a rejection against
// the given item.
func (x *processor[T]) await(promise *eventloop.ChainedPromise, item T, index int, done func()) {
	promise.Then(
		func(eventloop.Result) eventloop.Result {
			done()
			return nil
		},
		func(reason eventloop.Result) eventloop.Result {
			x.recordError(item, reason, index)
			done()
			return nil
		},
	)
}

// finish broadcasts the outcome of a completed run.
func (x *processor[T]) finish() {
	x.settle(nil)
}

// settle is guarded by a one-shot latch. A non-nil cause indicates the run
// could not complete.
func (x *processor[T]) settle(cause error) {
	if x.finished {
		return
	}
	x.finished = true
	x.state.Store(int32(StateFinished))

	x.logger.Debug().
		Uint64(`processor`, x.id).
		Int(`items`, len(*x.items)).
		Int(`errors`, len(x.errors)).
		Int(`ticks`, x.ticks).
		Dur(`elapsed`, time.Since(x.started)).
		Log(`processor finished`)

	var err error
	if len(x.errors) != 0 {
		err = &QueueError[T]{Errors: x.errors}
	}
	if cause != nil {
		err = errors.Join(cause, err)
	}
	if err != nil {
		x.observers.RejectAll(err)
		return
	}
	x.observers.ResolveAll(*x.items)
}

// Then attaches handlers to a new observer of the run. The run is fulfilled
// with the collection, or rejected with a [QueueError]. Each call is
// independent, and may be made at any time, including after completion.
func (x *processor[T]) Then(onFulfilled func(items []T) any, onRejected func(err error) any) *eventloop.ChainedPromise {
	return x.observers.NewObserver().Then(onFulfilled, onRejected)
}

// Catch is equivalent to Then(nil, onRejected).
func (x *processor[T]) Catch(onRejected func(err error) any) *eventloop.ChainedPromise {
	return x.observers.NewObserver().Catch(onRejected)
}

// Finally attaches a handler, to a new observer of the run, which will be
// called however the run completes.
func (x *processor[T]) Finally(onSettled func()) *eventloop.ChainedPromise {
	return x.observers.NewObserver().Finally(onSettled)
}

// Observe returns a new observer of the run.
func (x *processor[T]) Observe() *Future[[]T] {
	return x.observers.NewObserver()
}

// Attach registers an arbitrary observer of the run.
func (x *processor[T]) Attach(observer Observer[[]T]) {
	x.observers.Attach(observer)
}

// Wait blocks until the run completes, or ctx is done. It must not be called
// from the loop goroutine.
func (x *processor[T]) Wait(ctx context.Context) ([]T, error) {
	type outcome struct {
		err   error
		items []T
	}
	if ctx == nil {
		return nil, errors.New(`queueprocessor: nil context`)
	}
	ch := make(chan outcome, 1)
	x.observers.Attach(ObserverFuncs[[]T]{
		OnResolve: func(items []T) { ch <- outcome{items: items} },
		OnReject:  func(err error) { ch <- outcome{err: err} },
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-ch:
		return o.items, o.err
	}
}

// State returns the current [State]. Safe to call from any goroutine.
func (x *processor[T]) State() State {
	return State(x.state.Load())
}
