package observer_test

import (
	"fmt"
	"testing"

	"github.com/delaneyj/watchparty/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler(t *testing.T) {
	t.Run("many appends, one flush", func(t *testing.T) {
		rec := newRecorder()
		rt := rec.runtime()
		data := observer.ObjectOf("list", observer.NewArray())
		rt.Observe(data, false)

		renders := []int{0, 0}
		for i := range renders {
			rt.NewWatcher(nil, func() any {
				renders[i]++
				return data.Get("list").(*observer.Array).Len()
			}, nil, &observer.WatcherOptions{Render: true})
		}

		list := data.Get("list").(*observer.Array)
		for i := 0; i < 10; i++ {
			list.Push(i)
		}
		require.NoError(t, rt.Tick())

		require.Len(t, rec.flushes, 1)
		assert.Equal(t, []int{2, 2}, renders)
		assert.Equal(t, 2, rec.flushes[0].Runs["render"])
		assert.Equal(t, 2, rec.flushes[0].Total())
	})

	t.Run("runs in creation order", func(t *testing.T) {
		rt := observer.NewRuntime()
		data := observer.ObjectOf("a", 1, "b", 1)
		rt.Observe(data, false)

		var order []string
		rt.NewWatcher(nil, func() any {
			order = append(order, "first")
			return data.Get("b")
		}, nil, nil)
		rt.NewWatcher(nil, func() any {
			order = append(order, "second")
			return data.Get("a")
		}, nil, nil)
		order = nil

		data.Put("a", 2)
		data.Put("b", 2)
		require.NoError(t, rt.Tick())
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("watchers queued during a flush run in the same flush", func(t *testing.T) {
		/*
			a -> user watcher -> writes b
			b -> render
		*/
		rec := newRecorder()
		rt := rec.runtime()
		data := observer.ObjectOf("a", 1, "b", 1)
		rt.Observe(data, false)

		rt.NewWatcher(nil, func() any { return data.Get("a") }, func(n, _ any) error {
			data.Put("b", n.(int)*10)
			return nil
		}, &observer.WatcherOptions{User: true})
		render := rt.NewWatcher(nil, func() any { return data.Get("b") }, nil, &observer.WatcherOptions{Render: true})

		data.Put("a", 2)
		require.NoError(t, rt.Tick())
		require.Len(t, rec.flushes, 1)
		assert.Equal(t, 2, rec.flushes[0].Total())
		assert.Equal(t, 20, render.Value())
	})

	t.Run("runaway watchers are abandoned", func(t *testing.T) {
		rec := newRecorder()
		rt := rec.runtime()
		data := observer.ObjectOf("a", 0, "b", 0)
		rt.Observe(data, false)

		calls := 0
		rt.NewWatcher(nil, func() any { return data.Get("a") }, func(n, _ any) error {
			calls++
			data.Put("a", n.(int)+1)
			return nil
		}, &observer.WatcherOptions{User: true})
		other := rt.NewWatcher(nil, func() any { return data.Get("b") }, nil, &observer.WatcherOptions{Render: true})

		data.Put("a", 1)
		data.Put("b", 1)
		require.NoError(t, rt.Tick())

		assert.Equal(t, observer.DefaultMaxUpdateCount+1, calls)
		assert.Equal(t, 1, other.Value())
		require.Len(t, rec.errs, 1)
		assert.ErrorIs(t, rec.errs[0], observer.ErrInfiniteUpdate)
		require.Len(t, rec.warnings, 1)
		assert.Contains(t, rec.warnings[0], "infinite update loop")
		require.Len(t, rec.flushes, 1)
		assert.Len(t, rec.flushes[0].Abandoned, 1)
		assert.False(t, rt.Flushing())

		// the next batch starts fresh
		data.Put("a", 0)
		require.NoError(t, rt.Tick())
		assert.Greater(t, calls, observer.DefaultMaxUpdateCount+1)
	})

	t.Run("custom update limit", func(t *testing.T) {
		rec := newRecorder()
		rt := rec.runtime(observer.WithMaxUpdateCount(3))
		data := observer.ObjectOf("a", 0)
		rt.Observe(data, false)
		calls := 0
		rt.NewWatcher(nil, func() any { return data.Get("a") }, func(n, _ any) error {
			calls++
			data.Put("a", n.(int)+1)
			return nil
		}, &observer.WatcherOptions{User: true})

		data.Put("a", 1)
		require.NoError(t, rt.Tick())
		assert.Equal(t, 4, calls)
	})

	t.Run("before and updated hooks", func(t *testing.T) {
		rt := observer.NewRuntime()
		data := observer.ObjectOf("msg", "hi")
		rt.Observe(data, false)

		parent := &stubVM{name: "parent", mounted: true}
		child := &stubVM{name: "child", parent: parent, mounted: true}
		for _, vm := range []*stubVM{parent, child} {
			vm.render = rt.NewWatcher(vm, func() any { return data.Get("msg") }, nil, &observer.WatcherOptions{
				Render: true,
				Before: func() { vm.CallHook(observer.HookBeforeUpdate) },
			})
		}

		parent.hooks, child.hooks = nil, nil
		data.Put("msg", "yo")
		require.NoError(t, rt.Tick())

		assert.Equal(t, []observer.Hook{observer.HookBeforeUpdate, observer.HookUpdated}, parent.hooks)
		assert.Equal(t, []observer.Hook{observer.HookBeforeUpdate, observer.HookUpdated}, child.hooks)
	})

	t.Run("updated runs child first", func(t *testing.T) {
		rt := observer.NewRuntime()
		data := observer.ObjectOf("msg", "hi")
		rt.Observe(data, false)

		var journal []string
		mk := func(name string) *stubVM {
			vm := &stubVM{name: name, mounted: true, journal: &journal}
			vm.render = rt.NewWatcher(vm, func() any { return data.Get("msg") }, nil, &observer.WatcherOptions{Render: true})
			return vm
		}
		mk("parent")
		mk("child")
		data.Put("msg", "yo")
		require.NoError(t, rt.Tick())
		assert.Equal(t, []string{"child:updated", "parent:updated"}, journal)
	})

	t.Run("destroyed components get no updated hook", func(t *testing.T) {
		rt := observer.NewRuntime()
		data := observer.ObjectOf("msg", "hi")
		rt.Observe(data, false)
		vm := &stubVM{name: "gone", mounted: true}
		vm.render = rt.NewWatcher(vm, func() any {
			return data.Get("msg")
		}, nil, &observer.WatcherOptions{Render: true})
		data.Put("msg", "yo")
		vm.destroyed = true
		require.NoError(t, rt.Tick())
		assert.Empty(t, vm.hooks)
	})

	t.Run("activated components", func(t *testing.T) {
		rec := newRecorder()
		rt := rec.runtime()
		data := observer.ObjectOf("show", false)
		rt.Observe(data, false)
		cached := &stubVM{name: "cached", inactive: true}

		rt.NewWatcher(nil, func() any { return data.Get("show") }, func(n, _ any) error {
			if n.(bool) {
				rt.QueueActivatedComponent(cached)
				assert.False(t, cached.inactive)
			}
			return nil
		}, &observer.WatcherOptions{User: true})

		data.Put("show", true)
		require.NoError(t, rt.Tick())
		assert.Equal(t, []bool{true}, cached.activations)
		assert.Equal(t, []observer.Hook{observer.HookActivated}, cached.hooks)
		require.Len(t, rec.flushes, 1)
		assert.Equal(t, 1, rec.flushes[0].Activated)
	})

	t.Run("synchronous mode flushes inline", func(t *testing.T) {
		rec := newRecorder()
		rt := rec.runtime(observer.WithAsync(false))
		assert.False(t, rt.IsAsync())
		data := observer.ObjectOf("a", 1)
		rt.Observe(data, false)

		var seen []string
		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("w%d", i)
			rt.NewWatcher(nil, func() any {
				seen = append(seen, name)
				return data.Get("a")
			}, nil, &observer.WatcherOptions{Render: true})
		}
		seen = nil

		data.Put("a", 2)
		assert.Equal(t, []string{"w0", "w1", "w2"}, seen)
		assert.Len(t, rec.flushes, 3)
	})

	t.Run("a panicking flush hook does not stop the others", func(t *testing.T) {
		rec := newRecorder()
		after := 0
		rt := rec.runtime(
			observer.WithFlushHook(observer.FlushHookFunc(func(observer.FlushInfo) {
				panic("hook exploded")
			})),
			observer.WithFlushHook(observer.FlushHookFunc(func(observer.FlushInfo) {
				after++
			})),
		)
		data := observer.ObjectOf("a", 1)
		rt.Observe(data, false)
		rt.NewWatcher(nil, func() any { return data.Get("a") }, nil, &observer.WatcherOptions{Render: true})

		data.Put("a", 2)
		require.NotPanics(t, func() { require.NoError(t, rt.Tick()) })
		assert.Equal(t, 1, after)
		assert.Len(t, rec.flushes, 1)
		require.Len(t, rec.errs, 1)
		assert.Contains(t, rec.errs[0].Error(), "hook exploded")
		assert.Equal(t, []string{"flush hook"}, rec.infos)
		assert.False(t, rt.Flushing())

		data.Put("a", 3)
		require.NoError(t, rt.Tick())
		assert.Equal(t, 2, after)
	})
}
