// Package observer tracks which watchers read which pieces of data and
// re-runs them in id order, once per batch, after the data changes.
//
// Data lives in *Object and *Array containers. Observe makes a container
// reactive: every property read inside a watcher evaluation subscribes the
// watcher to that property's Dep, and every write notifies the subscribers.
// Non-lazy watchers are queued and flushed on the runtime's Deferrer, which
// by default is a Microtasks queue drained by Runtime.Tick or a Loop.
//
//	rt := observer.NewRuntime()
//	data := observer.ObjectOf("a", 1)
//	rt.Observe(data, false)
//	rt.NewWatcher(nil, func() any { return data.Get("a") }, func(n, o any) error {
//		fmt.Println(o, "->", n)
//		return nil
//	}, &observer.WatcherOptions{User: true})
//	data.Put("a", 2)
//	rt.Tick() // 1 -> 2
package observer
