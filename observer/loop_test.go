package observer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/delaneyj/watchparty/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, rt *observer.Runtime) (*observer.Loop, context.CancelFunc, <-chan error) {
	t.Helper()
	l := observer.NewLoop(rt, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	return l, cancel, done
}

func TestLoop(t *testing.T) {
	t.Run("do waits for the flush", func(t *testing.T) {
		rt := observer.NewRuntime()
		l, cancel, done := startLoop(t, rt)
		defer cancel()
		ctx := context.Background()

		var (
			data *observer.Object
			w    *observer.Watcher
		)
		require.NoError(t, l.Do(ctx, func() error {
			data = observer.ObjectOf("n", 0)
			rt.Observe(data, false)
			w = rt.NewWatcher(nil, func() any { return data.Get("n") }, nil, &observer.WatcherOptions{Render: true})
			return nil
		}))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, l.Do(ctx, func() error {
					data.Put("n", data.Get("n").(int)+1)
					return nil
				}))
			}()
		}
		wg.Wait()

		var got any
		require.NoError(t, l.Do(ctx, func() error {
			got = w.Value()
			return nil
		}))
		assert.Equal(t, 8, got)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		assert.ErrorIs(t, l.Submit(ctx, func() {}), observer.ErrLoopClosed)
	})

	t.Run("do surfaces callback errors", func(t *testing.T) {
		rt := observer.NewRuntime(observer.WithErrorHandler(func(error, observer.Component, string) {}))
		l, cancel, _ := startLoop(t, rt)
		defer cancel()
		ctx := context.Background()
		boom := errors.New("boom")

		err := l.Do(ctx, func() error {
			data := observer.ObjectOf("a", 1)
			rt.Observe(data, false)
			rt.NewWatcher(nil, func() any { return data.Get("a") }, func(_, _ any) error {
				return boom
			}, &observer.WatcherOptions{User: true})
			data.Put("a", 2)
			return nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("submit from the loop runs after the current task", func(t *testing.T) {
		rt := observer.NewRuntime()
		l, cancel, _ := startLoop(t, rt)
		defer cancel()
		ctx := context.Background()

		var order []string
		finished := make(chan struct{})
		require.NoError(t, l.Submit(ctx, func() {
			require.NoError(t, l.Submit(ctx, func() {
				order = append(order, "nested")
				close(finished)
			}))
			rt.NextTick(func() error {
				order = append(order, "tick")
				return nil
			})
			order = append(order, "task")
		}))

		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("nested task never ran")
		}
		assert.Equal(t, []string{"task", "tick", "nested"}, order)
	})

	t.Run("errors from plain tasks reach OnError", func(t *testing.T) {
		rt := observer.NewRuntime()
		l := observer.NewLoop(rt, 1)
		errc := make(chan error, 1)
		l.OnError(func(err error) { errc <- err })
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go l.Run(ctx)

		require.NoError(t, l.Submit(ctx, func() { panic("task failed") }))
		select {
		case err := <-errc:
			assert.ErrorContains(t, err, "task failed")
		case <-time.After(time.Second):
			t.Fatal("no error reported")
		}
	})

	t.Run("runs once", func(t *testing.T) {
		rt := observer.NewRuntime()
		l, cancel, _ := startLoop(t, rt)
		defer cancel()
		require.NoError(t, l.Do(context.Background(), func() error { return nil }))
		assert.ErrorIs(t, l.Run(context.Background()), observer.ErrLoopRunning)
	})
}

func TestDefault(t *testing.T) {
	rt := observer.Default()
	assert.Same(t, rt, observer.Default())

	other := make(chan *observer.Runtime)
	go func() {
		defer observer.ReleaseDefault()
		other <- observer.Default()
	}()
	assert.NotSame(t, rt, <-other)

	observer.ReleaseDefault()
	assert.NotSame(t, rt, observer.Default())
	observer.ReleaseDefault()
}
