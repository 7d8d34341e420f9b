package queueprocessor

import (
	"fmt"
	"math"

	"github.com/joeycumines/go-eventloop"
)

// Batch processes a window of items per tick, balancing the overhead of each
// tick against how long each tick holds the loop.
//
// The shape of the callback determines how each window is processed. A
// window callback ([Window], [WindowAsync]) is invoked once per tick, with
// the window, and any failure is attributed to the first item of the window.
// A per-item callback ([Each], [EachAsync]) is invoked once per item in the
// window, and each failure is attributed to its own item. In both cases,
// every returned promise is awaited before the next tick is scheduled.
type Batch[T any] struct {
	item      itemCall[T]
	window    windowCall[T]
	batchSize int
	processor[T]
}

// AdaptiveBatchSize is the default batch size, for a collection of the given
// length: the square root, rounded down, but at least 1.
func AdaptiveBatchSize(length int) int {
	if length <= 1 {
		return 1
	}
	return max(int(math.Sqrt(float64(length))), 1)
}

// NewBatch starts processing items, which must be accessed only from the
// loop goroutine, while the run is in progress. The batch size is
// configured via [WithBatchSize], and defaults to [AdaptiveBatchSize] of the
// initial length of the collection.
func NewBatch[T any](js *eventloop.JS, items *[]T, callback Callback[T], opts ...Option) (*Batch[T], error) {
	if callback.item == nil && callback.window == nil {
		return nil, fmt.Errorf("%w: nil callback", ErrCallbackShape)
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	x := &Batch[T]{
		item:      callback.item,
		window:    callback.window,
		batchSize: cfg.batchSize,
	}
	if err := x.init(js, items, `batch`, cfg); err != nil {
		return nil, err
	}
	if x.batchSize <= 0 {
		x.batchSize = AdaptiveBatchSize(len(*items))
	}
	if x.window != nil {
		x.step = x.nextWindow
	} else {
		x.step = x.nextEach
	}
	if err := x.start(x.batchSize); err != nil {
		return nil, err
	}
	return x, nil
}

// BatchSize returns the effective batch size.
func (x *Batch[T]) BatchSize() int {
	return x.batchSize
}

// bounds returns the window for the current tick, clamped to the live
// length, and advances the cursor past it.
func (x *Batch[T]) bounds() (items []T, start, end int) {
	items = *x.items
	start = x.cursor
	end = min(len(items), start+x.batchSize)
	consumed := end - start
	if consumed <= 0 {
		consumed = 1
	}
	x.cursor = start + consumed
	return
}

func (x *Batch[T]) nextWindow(done func()) {
	items, start, end := x.bounds()
	window := items[start:end:end]
	item := items[start]

	promise, failure := invoke(func() (*eventloop.ChainedPromise, error) {
		return x.window(window, start, items)
	})
	switch {
	case failure != nil:
		x.recordError(item, failure, start)
	case promise != nil:
		x.await(promise, item, start, done)
		return
	}
	done()
}

func (x *Batch[T]) nextEach(done func()) {
	items, start, end := x.bounds()

	// the count starts at 1, to guard against promises settling before the
	// loop below has finished, i.e. ensure done is called exactly once
	pending := 1
	release := func() {
		pending--
		if pending == 0 {
			done()
		}
	}

	for index := start; index < end; index++ {
		item := items[index]
		promise, failure := invoke(func() (*eventloop.ChainedPromise, error) {
			return x.item(item, index, items)
		})
		switch {
		case failure != nil:
			x.recordError(item, failure, index)
		case promise != nil:
			pending++
			x.await(promise, item, index, release)
		}
	}

	release()
}
