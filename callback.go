package queueprocessor

import (
	"github.com/joeycumines/go-eventloop"
)

type (
	// Callback is the work performed by a processor. It is constructed using
	// one of Each, EachAsync, Window, or WindowAsync, which determine its
	// shape: per-item callbacks are invoked once per index, window callbacks
	// are invoked once per tick, with the slice of items consumed.
	//
	// The items argument passed to every shape is the collection, as it was
	// at the time of the call.
	Callback[T any] struct {
		item   itemCall[T]
		window windowCall[T]
	}

	itemCall[T any]   func(item T, index int, items []T) (*eventloop.ChainedPromise, error)
	windowCall[T any] func(window []T, start int, items []T) (*eventloop.ChainedPromise, error)
)

// Each builds a per-item [Callback]. A non-nil error, or a panic, marks the
// item as failed.
func Each[T any](fn func(item T, index int, items []T) error) Callback[T] {
	if fn == nil {
		return Callback[T]{}
	}
	return Callback[T]{item: func(item T, index int, items []T) (*eventloop.ChainedPromise, error) {
		return nil, fn(item, index, items)
	}}
}

// EachAsync builds a per-item [Callback], that returns a promise, which will
// be awaited before the processor advances. A rejected promise, or a panic,
// marks the item as failed. A nil promise is treated as success.
func EachAsync[T any](fn func(item T, index int, items []T) *eventloop.ChainedPromise) Callback[T] {
	if fn == nil {
		return Callback[T]{}
	}
	return Callback[T]{item: func(item T, index int, items []T) (*eventloop.ChainedPromise, error) {
		return fn(item, index, items), nil
	}}
}

// Window builds a window [Callback], for [Batch]. The window must not be
// retained beyond the call. Failures are attributed to the first item of the
// window.
func Window[T any](fn func(window []T, start int, items []T) error) Callback[T] {
	if fn == nil {
		return Callback[T]{}
	}
	return Callback[T]{window: func(window []T, start int, items []T) (*eventloop.ChainedPromise, error) {
		return nil, fn(window, start, items)
	}}
}

// WindowAsync builds a window [Callback], for [Batch], that returns a
// promise, which will be awaited before the processor advances.
func WindowAsync[T any](fn func(window []T, start int, items []T) *eventloop.ChainedPromise) Callback[T] {
	if fn == nil {
		return Callback[T]{}
	}
	return Callback[T]{window: func(window []T, start int, items []T) (*eventloop.ChainedPromise, error) {
		return fn(window, start, items), nil
	}}
}

// invoke calls fn, recovering any panic. A non-nil failure indicates the
// call failed, otherwise promise, if non-nil, is the pending outcome.
func invoke(fn func() (*eventloop.ChainedPromise, error)) (promise *eventloop.ChainedPromise, failure any) {
	defer func() {
		if r := recover(); r != nil {
			promise, failure = nil, r
		}
	}()
	promise, err := fn()
	if err != nil {
		return nil, err
	}
	return promise, nil
}
