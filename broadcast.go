package queueprocessor

import (
	"sync"

	"github.com/joeycumines/go-eventloop"
	"github.com/joeycumines/logiface"
)

type (
	// Observer receives the outcome of a run. Exactly one of Resolve or
	// Reject will be called, at most once.
	Observer[V any] interface {
		Resolve(value V)
		Reject(err error)
	}

	// ObserverFuncs adapts a pair of functions to [Observer]. Either may be
	// nil.
	ObserverFuncs[V any] struct {
		OnResolve func(value V)
		OnReject  func(err error)
	}

	// Broadcaster settles any number of observers with the same outcome,
	// exactly once, in the order they were attached.
	//
	// Observers attached before settlement are notified on the goroutine that
	// calls ResolveAll or RejectAll, which is the loop goroutine, for the
	// processors in this package. Observers attached after settlement are
	// notified by a task submitted to the loop, with the recorded outcome,
	// unless the loop has terminated, in which case they are notified by the
	// caller of Attach.
	//
	// Instances must be initialized using NewBroadcaster.
	Broadcaster[V any] struct {
		js        *eventloop.JS
		logger    *logiface.Logger[logiface.Event]
		err       error
		value     V
		observers []Observer[V]
		// pending holds settled-but-undelivered observers, drained FIFO by
		// whichever goroutine holds the draining flag
		pending   []Observer[V]
		delivered int
		mu        sync.Mutex
		settled   bool
		draining  bool
	}
)

var _ Observer[any] = ObserverFuncs[any]{}

// Resolve calls OnResolve, if set.
func (x ObserverFuncs[V]) Resolve(value V) {
	if x.OnResolve != nil {
		x.OnResolve(value)
	}
}

// Reject calls OnReject, if set.
func (x ObserverFuncs[V]) Reject(err error) {
	if x.OnReject != nil {
		x.OnReject(err)
	}
}

// NewBroadcaster initializes a Broadcaster. The logger is optional, and is
// used to report observers that panic.
func NewBroadcaster[V any](js *eventloop.JS, logger *logiface.Logger[logiface.Event]) *Broadcaster[V] {
	if js == nil {
		panic(`queueprocessor: nil js`)
	}
	return &Broadcaster[V]{js: js, logger: logger}
}

// Attach registers an observer. It is safe to call at any time, from any
// goroutine. If the broadcaster has already settled, the observer is queued
// behind any observers still being notified, and will be notified by a loop
// task. If the loop has terminated, Attach notifies it before returning.
func (x *Broadcaster[V]) Attach(observer Observer[V]) {
	if observer == nil {
		return
	}
	x.mu.Lock()
	if !x.settled {
		x.observers = append(x.observers, observer)
		x.mu.Unlock()
		return
	}
	x.pending = append(x.pending, observer)
	draining := x.draining
	x.mu.Unlock()
	if draining {
		return
	}
	if err := x.js.Loop().Submit(x.drain); err != nil {
		x.drain()
	}
}

// NewObserver creates, attaches, and returns a new [Future].
func (x *Broadcaster[V]) NewObserver() *Future[V] {
	f := NewFuture[V](x.js)
	x.Attach(f)
	return f
}

// ResolveAll resolves every observer with value, in the order they were
// attached. Only the first call to ResolveAll or RejectAll has any effect.
func (x *Broadcaster[V]) ResolveAll(value V) {
	x.settle(value, nil)
}

// RejectAll rejects every observer with err, in the order they were
// attached. Only the first call to ResolveAll or RejectAll has any effect.
func (x *Broadcaster[V]) RejectAll(err error) {
	var zero V
	if err == nil {
		err = ErrUnknown
	}
	x.settle(zero, err)
}

// Settled indicates whether ResolveAll or RejectAll has been called.
func (x *Broadcaster[V]) Settled() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.settled
}

func (x *Broadcaster[V]) settle(value V, err error) {
	x.mu.Lock()
	if x.settled {
		x.mu.Unlock()
		return
	}
	x.settled = true
	x.value, x.err = value, err
	x.pending = x.observers
	x.observers = nil
	x.mu.Unlock()

	x.drain()
}

// drain notifies pending observers, in order, unless another call is
// already doing so. Observers attached during the drain, including by
// observers being notified, are picked up by the same loop.
func (x *Broadcaster[V]) drain() {
	x.mu.Lock()
	if x.draining {
		x.mu.Unlock()
		return
	}
	x.draining = true
	for len(x.pending) != 0 {
		observer := x.pending[0]
		x.pending[0] = nil
		x.pending = x.pending[1:]
		i := x.delivered
		x.delivered++
		value, err := x.value, x.err
		x.mu.Unlock()

		x.notify(i, observer, value, err)

		x.mu.Lock()
	}
	x.pending = nil
	x.draining = false
	x.mu.Unlock()
}

// notify settles a single observer, recovering any panic, so that delivery
// to the remaining observers is unaffected.
func (x *Broadcaster[V]) notify(i int, observer Observer[V], value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Err().
				Int(`observer`, i).
				Any(`panic`, r).
				Log(`observer panicked`)
		}
	}()
	if err != nil {
		observer.Reject(err)
	} else {
		observer.Resolve(value)
	}
}
