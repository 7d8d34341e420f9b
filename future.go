package queueprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeycumines/go-eventloop"
)

// Future is a single-shot result, that may be settled externally, via
// Resolve or Reject. It wraps exactly one [eventloop.ChainedPromise], and
// adds typed access to it.
//
// Only the first call to Resolve or Reject has any effect. Handlers attached
// via Then, Catch, or Finally run as microtasks, on the loop.
type Future[V any] struct {
	promise *eventloop.ChainedPromise
	resolve eventloop.ResolveFunc
	reject  eventloop.RejectFunc
}

var _ Observer[any] = (*Future[any])(nil)

// NewFuture creates a new, pending Future, bound to the given JS adapter.
func NewFuture[V any](js *eventloop.JS) *Future[V] {
	if js == nil {
		panic(`queueprocessor: nil js`)
	}
	promise, resolve, reject := js.NewChainedPromise()
	return &Future[V]{
		promise: promise,
		resolve: resolve,
		reject:  reject,
	}
}

// Resolve fulfills the future with value.
func (x *Future[V]) Resolve(value V) {
	x.resolve(value)
}

// Reject rejects the future with err. A nil err is replaced by [ErrUnknown].
func (x *Future[V]) Reject(err error) {
	if err == nil {
		err = ErrUnknown
	}
	x.reject(err)
}

// Promise returns the underlying promise. It should not be settled other than
// via Resolve or Reject: a value that is not a V causes Wait to fail, and the
// promises returned by Then to reject, with [ErrValueType].
func (x *Future[V]) Promise() *eventloop.ChainedPromise {
	return x.promise
}

// Settled indicates whether Resolve or Reject has taken effect.
func (x *Future[V]) Settled() bool {
	return x.promise.State() != eventloop.Pending
}

// Then attaches handlers, returning the chained promise. Either handler may
// be nil, in which case the outcome passes through. The chained promise is
// fulfilled with the handler's return value, or rejected if it panics.
func (x *Future[V]) Then(onFulfilled func(value V) any, onRejected func(err error) any) *eventloop.ChainedPromise {
	var fulfilled, rejected func(eventloop.Result) eventloop.Result
	if onFulfilled != nil {
		fulfilled = func(r eventloop.Result) eventloop.Result {
			v, err := valueOf[V](r)
			if err != nil {
				// rejects the chained promise, without calling onFulfilled
				panic(err)
			}
			return onFulfilled(v)
		}
	}
	if onRejected != nil {
		rejected = func(r eventloop.Result) eventloop.Result {
			return onRejected(reasonError(r))
		}
	}
	return x.promise.Then(fulfilled, rejected)
}

// Catch is equivalent to Then(nil, onRejected).
func (x *Future[V]) Catch(onRejected func(err error) any) *eventloop.ChainedPromise {
	return x.Then(nil, onRejected)
}

// Finally attaches a handler that runs however the future settles. The
// returned promise settles the same way as this future.
func (x *Future[V]) Finally(onSettled func()) *eventloop.ChainedPromise {
	return x.promise.Finally(onSettled)
}

// Wait blocks until the future settles, or ctx is done.
//
// WARNING: Wait must not be called from the loop goroutine, as that would
// prevent the future from ever being settled.
func (x *Future[V]) Wait(ctx context.Context) (V, error) {
	var zero V
	if ctx == nil {
		return zero, errors.New(`queueprocessor: nil context`)
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-x.promise.ToChannel():
		if x.promise.State() == eventloop.Rejected {
			return zero, reasonError(r)
		}
		return valueOf[V](r)
	}
}

// valueOf asserts that a fulfilled value is a V. A nil value is accepted as
// the zero value.
func valueOf[V any](r eventloop.Result) (V, error) {
	v, ok := r.(V)
	if !ok && r != nil {
		return v, fmt.Errorf("%w: got %T, want %T", ErrValueType, r, v)
	}
	return v, nil
}
