package queueprocessor

import (
	"fmt"

	"github.com/joeycumines/go-eventloop"
)

// Sequential processes one item per tick, in cursor order. If the callback
// returns a promise, the next tick is not scheduled until it settles, so at
// most one item is ever in flight.
type Sequential[T any] struct {
	call itemCall[T]
	processor[T]
}

// NewSequential starts processing items, which must be accessed only from
// the loop goroutine, while the run is in progress. Items appended to the
// collection before the cursor reaches the end will be processed. The
// callback must be a per-item callback, see [Each] and [EachAsync].
//
// Any [WithBatchSize] option is ignored.
func NewSequential[T any](js *eventloop.JS, items *[]T, callback Callback[T], opts ...Option) (*Sequential[T], error) {
	if callback.item == nil {
		if callback.window != nil {
			return nil, fmt.Errorf("%w: sequential processor requires a per-item callback", ErrCallbackShape)
		}
		return nil, fmt.Errorf("%w: nil callback", ErrCallbackShape)
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	x := &Sequential[T]{call: callback.item}
	if err := x.init(js, items, `sequential`, cfg); err != nil {
		return nil, err
	}
	x.step = x.next
	if err := x.start(1); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *Sequential[T]) next(done func()) {
	index := x.cursor
	x.cursor++

	items := *x.items
	item := items[index]

	promise, failure := invoke(func() (*eventloop.ChainedPromise, error) {
		return x.call(item, index, items)
	})
	switch {
	case failure != nil:
		x.recordError(item, failure, index)
	case promise != nil:
		x.await(promise, item, index, done)
		return
	}
	done()
}
