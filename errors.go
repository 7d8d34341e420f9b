package queueprocessor

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrUnknown is used in place of a failure that carried no usable error,
	// e.g. a nil rejection reason, or a panic with a non-error value.
	ErrUnknown = errors.New("unknown error")

	// ErrCallbackShape is returned when a processor is constructed with a
	// [Callback] it cannot invoke, e.g. a window callback for [Sequential].
	ErrCallbackShape = errors.New("queueprocessor: unsupported callback shape")

	// ErrInvalidOption is returned when an [Option] has an invalid value.
	ErrInvalidOption = errors.New("queueprocessor: invalid option")

	// ErrValueType is returned when a [Future] was fulfilled with a value of
	// an unexpected type, which is only possible via its underlying promise.
	ErrValueType = errors.New("queueprocessor: unexpected value type")

	// ErrSchedule is wrapped by the error a run is rejected with, if a tick
	// could not be scheduled, e.g. because the loop has terminated.
	ErrSchedule = errors.New("queueprocessor: failed to schedule tick")
)

// ItemError records the failure of a single callback invocation, along with
// the offending item and its index within the collection.
//
// For batch processors using a window callback, the item and index are those
// of the start of the window.
type ItemError[T any] struct {
	// Item is the item that failed.
	Item T

	// Err is the failure, which will be [ErrUnknown] if the raw failure was
	// not an error.
	Err error

	// Reason is the raw failure value, if it was not an error (e.g. the value
	// passed to panic). It is nil otherwise.
	Reason any

	// Index is the index of Item, within the collection.
	Index int
}

// QueueError is the single failure a run is rejected with, if any callback
// invocation failed. Errors are in the order they were recorded.
type QueueError[T any] struct {
	Errors []*ItemError[T]
}

// newItemError normalizes a raw failure value, which may be anything that
// was returned, passed to panic, or used to reject a promise.
func newItemError[T any](item T, raw any, index int) *ItemError[T] {
	e := ItemError[T]{Item: item, Index: index}
	switch v := raw.(type) {
	case *ItemError[T]:
		// re-keyed to where it was actually observed
		e.Err = v.Err
		e.Reason = v.Reason
	case error:
		e.Err = v
	default:
		e.Err = ErrUnknown
		e.Reason = raw
	}
	if e.Err == nil {
		e.Err = ErrUnknown
	}
	return &e
}

// Error returns the message of the underlying failure.
func (e *ItemError[T]) Error() string {
	if e.Err == nil {
		return ErrUnknown.Error()
	}
	return e.Err.Error()
}

// Unwrap returns the underlying failure, for use with [errors.Is] and
// [errors.As].
func (e *ItemError[T]) Unwrap() error {
	return e.Err
}

// Error includes the count of the contained errors.
func (e *QueueError[T]) Error() string {
	return fmt.Sprintf("queueprocessor: while processing, received %dx errors", len(e.Errors))
}

// Unwrap returns every contained [ItemError], for multi-error unwrapping.
func (e *QueueError[T]) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// AsQueueError finds the first [QueueError] in err's chain. It is a shorthand
// for [errors.As], mostly useful within a Catch handler.
func AsQueueError[T any](err error) (*QueueError[T], bool) {
	var target *QueueError[T]
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// reasonError converts a promise rejection reason to an error.
func reasonError(reason any) error {
	switch v := reason.(type) {
	case nil:
		return ErrUnknown
	case error:
		return v
	default:
		return fmt.Errorf("%w: %v", ErrUnknown, v)
	}
}
