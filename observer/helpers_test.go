package observer_test

import (
	"github.com/delaneyj/watchparty/observer"
)

type stubVM struct {
	name   string
	parent *stubVM
	data   *observer.Object

	render   *observer.Watcher
	watchers []*observer.Watcher

	mounted, destroyed, beingDestroyed bool
	inactive                           bool

	hooks       []observer.Hook
	journal     *[]string
	activations []bool
	captured    []string
	stopErrors  bool
}

func (vm *stubVM) Get(key string) any {
	if vm.data == nil {
		return nil
	}
	return vm.data.Get(key)
}

func (vm *stubVM) Name() string { return vm.name }

func (vm *stubVM) Parent() observer.Component {
	if vm.parent == nil {
		return nil
	}
	return vm.parent
}

func (vm *stubVM) RenderWatcher() *observer.Watcher { return vm.render }
func (vm *stubVM) IsMounted() bool                  { return vm.mounted }
func (vm *stubVM) IsDestroyed() bool                { return vm.destroyed }
func (vm *stubVM) IsBeingDestroyed() bool           { return vm.beingDestroyed }

func (vm *stubVM) AddWatcher(w *observer.Watcher) {
	vm.watchers = append(vm.watchers, w)
}

func (vm *stubVM) RemoveWatcher(w *observer.Watcher) {
	for i, x := range vm.watchers {
		if x == w {
			vm.watchers = append(vm.watchers[:i], vm.watchers[i+1:]...)
			return
		}
	}
}

func (vm *stubVM) CallHook(h observer.Hook) {
	vm.hooks = append(vm.hooks, h)
	if vm.journal != nil {
		*vm.journal = append(*vm.journal, vm.name+":"+string(h))
	}
}

func (vm *stubVM) Activate(direct bool) {
	vm.activations = append(vm.activations, direct)
	if vm.inactive {
		vm.inactive = false
		vm.CallHook(observer.HookActivated)
	}
}

func (vm *stubVM) SetInactive(inactive bool) {
	vm.inactive = inactive
}

func (vm *stubVM) ErrorCaptured(err error, from observer.Component, info string) bool {
	vm.captured = append(vm.captured, info)
	return !vm.stopErrors
}

type recorder struct {
	flushes  []observer.FlushInfo
	warnings []string
	errs     []error
	infos    []string
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) options() []observer.Option {
	return []observer.Option{
		observer.WithFlushHook(observer.FlushHookFunc(func(fi observer.FlushInfo) {
			r.flushes = append(r.flushes, fi)
		})),
		observer.WithWarnHandler(func(msg string, vm observer.Component) {
			r.warnings = append(r.warnings, msg)
		}),
		observer.WithErrorHandler(func(err error, vm observer.Component, info string) {
			r.errs = append(r.errs, err)
			r.infos = append(r.infos, info)
		}),
	}
}

func (r *recorder) runtime(opts ...observer.Option) *observer.Runtime {
	return observer.NewRuntime(append(r.options(), opts...)...)
}
