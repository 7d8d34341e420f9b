// Package queueprocessor processes a collection of items incrementally, on a
// [github.com/joeycumines/go-eventloop] loop, yielding to the loop between
// each unit of work, so that long-running work does not starve timers, I/O,
// or other tasks.
//
// # Processors
//
// A [Sequential] processor invokes its callback once per tick, for a single
// item. A [Batch] processor consumes a window of items per tick, with the
// window size given by [WithBatchSize], or [AdaptiveBatchSize] by default.
//
// Callbacks are built using [Each], [EachAsync], [Window], or [WindowAsync].
// An async callback returns a promise, and the processor does not advance
// until it settles. A callback that returns an error, panics, or returns a
// rejected promise marks the item as failed, but processing continues.
//
// The collection is passed by pointer, and its length is re-read at the start
// of every tick, so items appended during the run, before the cursor reaches
// the end, will be processed.
//
// # Outcome
//
// Each processor completes exactly once. It is fulfilled with the collection,
// if every invocation succeeded, otherwise it is rejected with a
// [QueueError], which contains an [ItemError] per failure, in the order they
// were recorded. Any number of observers may be attached, before or after
// completion, via Then, Catch, Finally, Observe, Attach, or Wait.
//
// [ForEach], [Map], and [Filter] are convenience functions, that run a
// [Batch] processor over a snapshot of a slice, and return a [Future].
//
// # Thread Safety
//
// Callbacks and promise handlers run on the loop goroutine. The collection
// must only be accessed from the loop goroutine, while a run is in progress.
// Observers may be attached from any goroutine, and State may be read from any
// goroutine. Wait must not be called from the loop goroutine.
//
// # Usage
//
//	items := []string{`a`, `b`, `c`}
//	p, err := queueprocessor.NewSequential(js, &items, queueprocessor.Each(
//	    func(item string, index int, items []string) error {
//	        return process(item)
//	    },
//	))
//	if err != nil {
//	    return err
//	}
//	p.Catch(func(err error) any {
//	    if qe, ok := queueprocessor.AsQueueError[string](err); ok {
//	        for _, e := range qe.Errors {
//	            log.Printf("item %d failed: %v", e.Index, e)
//	        }
//	    }
//	    return nil
//	})
package queueprocessor
