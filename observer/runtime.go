package observer

import (
	"log"

	mapset "github.com/deckarep/golang-set/v2"
)

// Runtime owns every piece of mutable state the reactive core needs: the
// evaluation target stack, the scheduler queue, the next-tick buffer and the
// id counters. A Runtime must only be used from one goroutine at a time; use a
// Loop to drive it from several.
type Runtime struct {
	cfg config

	depUID     uint64
	watcherUID uint64

	target      *Watcher
	targetStack []*Watcher

	shouldObserve bool

	sched scheduler

	callbacks []func()
	pending   bool
	micro     *Microtasks
	deferrer  Deferrer

	paths map[uint64][]string

	uncaught []error
}

func NewRuntime(opts ...Option) *Runtime {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxUpdateCount <= 0 {
		cfg.maxUpdateCount = DefaultMaxUpdateCount
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}

	rt := &Runtime{
		cfg:           cfg,
		shouldObserve: true,
		paths:         map[uint64][]string{},
	}
	rt.sched.reset()

	if cfg.deferrer != nil {
		rt.deferrer = cfg.deferrer
	} else {
		rt.micro = &Microtasks{}
		rt.deferrer = rt.micro
	}
	return rt
}

// IsAsync reports whether watcher updates are batched through NextTick.
func (rt *Runtime) IsAsync() bool {
	return rt.cfg.async
}

// IsProduction reports whether development diagnostics are disabled.
func (rt *Runtime) IsProduction() bool {
	return rt.cfg.production
}

// Target returns the watcher currently collecting dependencies, if any.
func (rt *Runtime) Target() *Watcher {
	return rt.target
}

// PushTarget makes w the active evaluator. A nil w suspends tracking until
// the matching PopTarget.
func (rt *Runtime) PushTarget(w *Watcher) {
	rt.targetStack = append(rt.targetStack, w)
	rt.target = w
}

// PopTarget restores the evaluator that was active before the last PushTarget.
func (rt *Runtime) PopTarget() {
	n := len(rt.targetStack)
	if n == 0 {
		panic("observer: PopTarget called without matching PushTarget")
	}
	rt.targetStack[n-1] = nil
	rt.targetStack = rt.targetStack[:n-1]
	if n > 1 {
		rt.target = rt.targetStack[n-2]
	} else {
		rt.target = nil
	}
}

// Untracked runs fn with dependency collection suspended.
func (rt *Runtime) Untracked(fn func()) {
	rt.PushTarget(nil)
	defer rt.PopTarget()
	fn()
}

// ToggleObserving enables or disables creation of new observers. Prefer
// WithoutObserving, which always restores the previous state.
func (rt *Runtime) ToggleObserving(value bool) {
	rt.shouldObserve = value
}

// IsObserving reports whether new containers are currently made reactive.
func (rt *Runtime) IsObserving() bool {
	return rt.shouldObserve
}

// WithoutObserving runs fn with observation disabled and restores the
// previous setting afterwards, even if fn panics.
func (rt *Runtime) WithoutObserving(fn func()) {
	prev := rt.shouldObserve
	rt.shouldObserve = false
	defer func() { rt.shouldObserve = prev }()
	fn()
}

// Tick drains the runtime's own microtask queue, running any pending flush
// and next-tick callbacks. It returns the errors from user watcher callbacks
// that surfaced during development mode since the last call.
//
// When a custom Deferrer is configured Tick only reports surfaced errors;
// the deferrer is then responsible for running the queued work.
func (rt *Runtime) Tick() error {
	if rt.micro != nil {
		rt.micro.Drain()
	}
	return rt.takeUncaught()
}

func (rt *Runtime) nextDepID() uint64 {
	rt.depUID++
	return rt.depUID
}

func (rt *Runtime) nextWatcherID() uint64 {
	rt.watcherUID++
	return rt.watcherUID
}

func newIDSet() mapset.Set[uint64] {
	return mapset.NewThreadUnsafeSet[uint64]()
}
