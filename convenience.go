package queueprocessor

import (
	"fmt"

	"github.com/joeycumines/go-eventloop"
)

// ForEach calls fn for each item, using a [Batch] processor, returning a
// future that is fulfilled with items, or rejected with a [QueueError].
func ForEach[T any](js *eventloop.JS, items []T, fn func(item T, index int, items []T) error, opts ...Option) (*Future[[]T], error) {
	b, err := NewBatch(js, &items, Each(fn), opts...)
	if err != nil {
		return nil, err
	}
	out := NewFuture[[]T](js)
	b.Attach(out)
	return out, nil
}

// Map calls fn for each item, using a [Batch] processor, returning a future
// that is fulfilled with the results, in the same order as items, or
// rejected with a [QueueError].
func Map[T, R any](js *eventloop.JS, items []T, fn func(item T, index int, items []T) (R, error), opts ...Option) (*Future[[]R], error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrCallbackShape)
	}
	results := make([]R, len(items))
	b, err := NewBatch(js, &items, Each(func(item T, index int, items []T) (err error) {
		results[index], err = fn(item, index, items)
		return err
	}), opts...)
	if err != nil {
		return nil, err
	}
	out := NewFuture[[]R](js)
	b.Attach(ObserverFuncs[[]T]{
		OnResolve: func([]T) { out.Resolve(results) },
		OnReject:  out.Reject,
	})
	return out, nil
}

// Filter calls fn for each item, using a [Batch] processor, returning a
// future that is fulfilled with the items for which fn returned true, in the
// same order as items, or rejected with a [QueueError].
func Filter[T any](js *eventloop.JS, items []T, fn func(item T, index int, items []T) (bool, error), opts ...Option) (*Future[[]T], error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrCallbackShape)
	}
	keep := make([]bool, len(items))
	b, err := NewBatch(js, &items, Each(func(item T, index int, items []T) (err error) {
		keep[index], err = fn(item, index, items)
		return err
	}), opts...)
	if err != nil {
		return nil, err
	}
	out := NewFuture[[]T](js)
	b.Attach(ObserverFuncs[[]T]{
		OnResolve: func(items []T) {
			matched := make([]T, 0, len(items))
			for i, item := range items {
				if keep[i] {
					matched = append(matched, item)
				}
			}
			out.Resolve(matched)
		},
		OnReject: out.Reject,
	})
	return out, nil
}
