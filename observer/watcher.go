package observer

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// Getter is a tracked expression. Every reactive slot it reads while running
// becomes a dependency of the watcher evaluating it.
type Getter func(vm Component) (any, error)

// Callback is invoked by Watcher.run with the new and the previous value.
type Callback func(newValue, oldValue any) error

type WatcherOptions struct {
	// Lazy watchers only mark themselves dirty on change and re-evaluate on
	// the next Read. Used for computed properties.
	Lazy bool
	// Sync watchers run immediately on change instead of being queued.
	Sync bool
	// User marks watchers registered through an explicit watch. Their
	// callback errors surface through Runtime.Tick in development mode.
	User bool
	// Deep watchers also depend on every nested slot of their value.
	Deep bool
	// Render marks a component's render watcher.
	Render bool
	// Before runs right before the watcher is re-run by a flush.
	Before func()
}

type Kind int

const (
	KindInternal Kind = iota
	KindRender
	KindComputed
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindComputed:
		return "computed"
	case KindUser:
		return "user"
	default:
		return "internal"
	}
}

// Watcher evaluates an expression, records the deps it touched and reacts
// when any of them notifies.
type Watcher struct {
	rt *Runtime
	vm Component
	id uint64

	expression string
	getter     Getter
	cb         Callback

	lazy, sync, user, deep, render bool
	before                         func()

	active bool
	dirty  bool
	value  any

	deps      []*Dep
	newDeps   []*Dep
	depIDs    mapset.Set[uint64]
	newDepIDs mapset.Set[uint64]
}

// NewWatcher creates a watcher owned by vm (which may be nil). expOrFn is a
// Getter, a func() any or a dotted path resolved against vm. Non-lazy
// watchers are evaluated right away.
func (rt *Runtime) NewWatcher(vm Component, expOrFn any, cb Callback, opts *WatcherOptions) *Watcher {
	w := &Watcher{
		rt:        rt,
		vm:        vm,
		cb:        cb,
		id:        rt.nextWatcherID(),
		active:    true,
		depIDs:    newIDSet(),
		newDepIDs: newIDSet(),
	}
	if opts != nil {
		w.lazy = opts.Lazy
		w.sync = opts.Sync
		w.user = opts.User
		w.deep = opts.Deep
		w.render = opts.Render
		w.before = opts.Before
	}
	w.dirty = w.lazy
	if vm != nil {
		vm.AddWatcher(w)
	}

	switch fn := expOrFn.(type) {
	case Getter:
		w.getter = fn
		w.expression = funcName(fn)
	case func(Component) (any, error):
		w.getter = fn
		w.expression = funcName(fn)
	case func() any:
		w.getter = func(Component) (any, error) { return fn(), nil }
		w.expression = funcName(fn)
	case string:
		w.expression = fn
		if get := rt.ParsePath(fn); get != nil {
			w.getter = func(vm Component) (any, error) {
				if vm == nil {
					return nil, nil
				}
				return get(vm), nil
			}
		} else {
			w.getter = func(Component) (any, error) { return nil, nil }
			rt.Warn(fmt.Sprintf(`Failed watching path: %q. Watcher only accepts simple dot-delimited paths. For full control, use a function instead.`, fn), vm)
		}
	default:
		w.getter = func(Component) (any, error) { return nil, nil }
		rt.Warn(fmt.Sprintf("Unsupported watch expression of type %T.", expOrFn), vm)
	}

	if !w.lazy {
		w.value = w.get()
	}
	return w
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "<func>"
}

// get evaluates the getter with w as the active target and re-collects deps.
func (w *Watcher) get() (value any) {
	rt := w.rt
	rt.PushTarget(w)
	defer func() {
		if w.deep {
			traverse(value)
		}
		rt.PopTarget()
		w.cleanupDeps()
	}()

	value, err := w.call()
	if err != nil {
		info := fmt.Sprintf("getter for watcher %q", w.expression)
		if w.render {
			info = "render"
		}
		rt.HandleError(err, w.vm, info)
		return nil
	}
	return value
}

func (w *Watcher) call() (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return w.getter(w.vm)
}

// AddDep records d for the evaluation in progress and subscribes w to it
// unless it already was from the previous evaluation.
func (w *Watcher) AddDep(d *Dep) {
	id := d.id
	if w.newDepIDs.Contains(id) {
		return
	}
	w.newDepIDs.Add(id)
	w.newDeps = append(w.newDeps, d)
	if !w.depIDs.Contains(id) {
		d.AddSub(w)
	}
}

// cleanupDeps unsubscribes from deps that the last evaluation did not touch
// and promotes the new dep set.
func (w *Watcher) cleanupDeps() {
	for _, d := range w.deps {
		if !w.newDepIDs.Contains(d.id) {
			d.RemoveSub(w)
		}
	}

	w.depIDs, w.newDepIDs = w.newDepIDs, w.depIDs
	w.newDepIDs.Clear()

	old := w.deps
	w.deps = w.newDeps
	clear(old)
	w.newDeps = old[:0]
}

func (w *Watcher) update() {
	switch {
	case w.lazy:
		w.dirty = true
	case w.sync:
		w.run()
	default:
		w.rt.queueWatcher(w)
	}
}

// Update reacts as if one of w's deps changed.
func (w *Watcher) Update() {
	w.update()
}

func (w *Watcher) run() {
	if !w.active {
		return
	}
	value := w.get()
	if !same(value, w.value) || isContainer(value) || w.deep || w.user || w.render {
		old := w.value
		w.value = value
		if w.cb == nil {
			return
		}
		info := fmt.Sprintf("callback for watcher %q", w.expression)
		w.rt.invoke(func() error { return w.cb(value, old) }, w.vm, info, w.user)
	}
}

// Evaluate recomputes a lazy watcher's value and clears its dirty flag.
func (w *Watcher) Evaluate() {
	w.value = w.get()
	w.dirty = false
}

// Depend makes the current target depend on everything w depends on.
func (w *Watcher) Depend() {
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].Depend()
	}
}

// Read is the computed property protocol: evaluate when dirty, forward
// dependencies to the current target, return the cached value.
func (w *Watcher) Read() any {
	if w.dirty {
		w.Evaluate()
	}
	if w.rt.target != nil {
		w.Depend()
	}
	return w.value
}

// Teardown removes w from every dep it subscribes to. Safe to call twice.
func (w *Watcher) Teardown() {
	if !w.active {
		return
	}
	if w.vm != nil && !w.vm.IsBeingDestroyed() {
		w.vm.RemoveWatcher(w)
	}
	for i := len(w.deps) - 1; i >= 0; i-- {
		w.deps[i].RemoveSub(w)
	}
	w.active = false
}

func (w *Watcher) ID() uint64 {
	return w.id
}

func (w *Watcher) Value() any {
	return w.value
}

func (w *Watcher) Dirty() bool {
	return w.dirty
}

func (w *Watcher) Active() bool {
	return w.active
}

func (w *Watcher) Expression() string {
	return w.expression
}

func (w *Watcher) Component() Component {
	return w.vm
}

func (w *Watcher) Kind() Kind {
	switch {
	case w.render:
		return KindRender
	case w.lazy:
		return KindComputed
	case w.user:
		return KindUser
	default:
		return KindInternal
	}
}

// DepIDs returns the ids of the deps collected by the last evaluation, in
// ascending order.
func (w *Watcher) DepIDs() []uint64 {
	ids := w.depIDs.ToSlice()
	slices.Sort(ids)
	return ids
}
