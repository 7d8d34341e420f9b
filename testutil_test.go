package queueprocessor

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/go-eventloop"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

type testEnv struct {
	loop *eventloop.Loop
	js   *eventloop.JS
}

// newTestEnv starts a loop, which is stopped on cleanup.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	loop, err := eventloop.New()
	require.NoError(t, err)

	js, err := eventloop.NewJS(loop)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(testTimeout):
			t.Error(`loop did not stop`)
		}
	})

	return &testEnv{loop: loop, js: js}
}

// do runs fn on the loop, blocking until it returns.
func (x *testEnv) do(t *testing.T, fn func()) {
	t.Helper()
	ch := make(chan struct{})
	require.NoError(t, x.loop.Submit(func() {
		defer close(ch)
		fn()
	}))
	select {
	case <-ch:
	case <-time.After(testTimeout):
		t.Fatal(`timed out waiting for loop`)
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

// countingScheduler wraps TimeoutScheduler, counting calls, and optionally
// failing from the given call number (1-based, 0 disables).
type countingScheduler struct {
	next   Scheduler
	calls  atomic.Int64
	failAt int64
}

func newCountingScheduler(js *eventloop.JS, failAt int64) *countingScheduler {
	return &countingScheduler{next: TimeoutScheduler(js), failAt: failAt}
}

func (x *countingScheduler) ScheduleAfter(delay time.Duration, fn func()) error {
	n := x.calls.Add(1)
	if x.failAt != 0 && n >= x.failAt {
		return eventloop.ErrLoopTerminated
	}
	return x.next.ScheduleAfter(delay, fn)
}

// syncBuffer is a log sink, safe to read while the loop is writing.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (x *syncBuffer) Write(p []byte) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.Write(p)
}

func (x *syncBuffer) String() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.buf.String()
}

func ints(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}
