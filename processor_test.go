package queueprocessor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_String(t *testing.T) {
	for _, tc := range [...]struct {
		state State
		str   string
	}{
		{StateCreated, `Created`},
		{StateScheduled, `Scheduled`},
		{StateAdvancing, `Advancing`},
		{StateFinished, `Finished`},
		{State(99), `Unknown`},
	} {
		assert.Equal(t, tc.str, tc.state.String())
	}
}

func TestProcessor_states(t *testing.T) {
	env := newTestEnv(t)
	items := ints(2)
	var (
		states []State
		p      *Sequential[int]
	)
	env.do(t, func() {
		var err error
		p, err = NewSequential(env.js, &items, Each(func(int, int, []int) error {
			states = append(states, p.State())
			return nil
		}))
		assert.NoError(t, err)
	})
	require.NotNil(t, p)
	_, err := p.Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []State{StateAdvancing, StateAdvancing}, states)
	assert.Equal(t, StateFinished, p.State())
}

func TestProcessor_observers(t *testing.T) {
	env := newTestEnv(t)
	cause := errors.New(`some error`)
	items := ints(3)

	var (
		mu       sync.Mutex
		outcomes []error
		wg       sync.WaitGroup
	)
	record := func(err error) {
		defer wg.Done()
		mu.Lock()
		defer mu.Unlock()
		outcomes = append(outcomes, err)
	}

	var p *Batch[int]
	env.do(t, func() {
		var err error
		p, err = NewBatch(env.js, &items, Each(func(item int, _ int, _ []int) error {
			if item == 1 {
				return cause
			}
			return nil
		}))
		if !assert.NoError(t, err) {
			return
		}
		wg.Add(4)
		p.Catch(func(err error) any {
			record(err)
			return nil
		})
		p.Then(func([]int) any {
			t.Error(`unexpected fulfillment`)
			return nil
		}, func(err error) any {
			record(err)
			return nil
		})
		p.Attach(ObserverFuncs[[]int]{OnReject: record})
		p.Observe().Catch(func(err error) any {
			record(err)
			return nil
		})
	})
	require.NotNil(t, p)

	_, err := p.Wait(testContext(t))
	require.Error(t, err)
	wg.Wait()

	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.Same(t, err, o)
	}
}

func TestProcessor_lateAttach(t *testing.T) {
	env := newTestEnv(t)
	items := []string{`a`}
	p, err := NewSequential(env.js, &items, Each(func(string, int, []string) error { return nil }))
	require.NoError(t, err)

	first, err := p.Wait(testContext(t))
	require.NoError(t, err)

	// attached after settlement
	second, err := p.Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	value, err := p.Observe().Wait(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{`a`}, value)

	ch := make(chan []string, 1)
	p.Then(func(items []string) any {
		ch <- items
		return nil
	}, nil)
	select {
	case v := <-ch:
		assert.Equal(t, []string{`a`}, v)
	case <-time.After(testTimeout):
		t.Fatal(`timed out`)
	}
}

func TestProcessor_finishLatch(t *testing.T) {
	env := newTestEnv(t)
	items := ints(2)
	var (
		resolves int
		p        *Sequential[int]
	)
	env.do(t, func() {
		var err error
		p, err = NewSequential(env.js, &items, Each(func(int, int, []int) error { return nil }))
		if !assert.NoError(t, err) {
			return
		}
		p.Attach(ObserverFuncs[[]int]{
			OnResolve: func([]int) { resolves++ },
			OnReject:  func(error) { t.Error(`unexpected rejection`) },
		})
	})
	require.NotNil(t, p)
	_, err := p.Wait(testContext(t))
	require.NoError(t, err)

	env.do(t, func() {
		p.finish()
		p.settle(errors.New(`ignored`))
		p.tick()
	})

	assert.Equal(t, 1, resolves)
	assert.Equal(t, StateFinished, p.State())
}

func TestProcessor_Wait_context(t *testing.T) {
	env := newTestEnv(t)
	items := ints(1)
	p, err := NewSequential(env.js, &items, Each(func(int, int, []int) error { return nil }),
		WithScheduler(SchedulerFunc(func(time.Duration, func()) error {
			// never calls fn
			return nil
		})),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*20)
	defer cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateScheduled, p.State())

	_, err = p.Wait(nil) //nolint:staticcheck
	assert.Error(t, err)
}

func TestProcessor_logging(t *testing.T) {
	env := newTestEnv(t)
	var buf syncBuffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
	limiter := catrate.NewLimiter(map[time.Duration]int{time.Hour: 2})
	cause := errors.New(`some error`)
	items := ints(5)

	p, err := NewBatch(env.js, &items, Each(func(int, int, []int) error {
		return cause
	}), WithLogger(logger), WithErrorLogLimiter(limiter))
	require.NoError(t, err)

	_, err = p.Wait(testContext(t))
	qe, ok := AsQueueError[int](err)
	require.True(t, ok)
	assert.Len(t, qe.Errors, 5)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"msg":"processor started"`), out)
	assert.Equal(t, 2, strings.Count(out, `"msg":"item failed"`), out)
	assert.Equal(t, 1, strings.Count(out, `"msg":"processor finished"`), out)
	assert.Contains(t, out, `"kind":"batch"`)
	assert.Contains(t, out, `some error`)
}

func TestProcessor_loggingDisabled(t *testing.T) {
	env := newTestEnv(t)
	var buf syncBuffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(&buf)),
		stumpy.L.WithLevel(logiface.LevelError),
	).Logger()
	items := ints(3)

	p, err := NewSequential(env.js, &items, Each(func(int, int, []int) error {
		return errors.New(`some error`)
	}), WithLogger(logger))
	require.NoError(t, err)

	_, err = p.Wait(testContext(t))
	require.Error(t, err)
	assert.Empty(t, buf.String())
}
