// Package instance is a small component runtime on top of the observer core:
// props, data, computed properties, watchers, a render watcher and the
// lifecycle hooks the scheduler drives.
package instance

import (
	"fmt"
	"slices"

	"github.com/delaneyj/watchparty/observer"
)

// PropDef declares a prop. Default is called when the parent passes no value.
type PropDef struct {
	Default func() any
}

type ComputedDef struct {
	Get func(vm *Instance) (any, error)
	Set func(vm *Instance, value any)
	// NoCache re-runs Get on every read instead of caching the value until a
	// dependency changes.
	NoCache bool
}

type WatchDef struct {
	Handler   func(vm *Instance, newValue, oldValue any) error
	Deep      bool
	Immediate bool
	Sync      bool
}

type HookFunc func(vm *Instance) error

type Options struct {
	Name    string
	Parent  *Instance
	Runtime *observer.Runtime

	Props     map[string]PropDef
	PropsData map[string]any

	Data     func(vm *Instance) (map[string]any, error)
	Computed map[string]ComputedDef
	// Watch maps a dotted path to its handlers.
	Watch map[string][]WatchDef

	Render func(vm *Instance) (any, error)

	Hooks         map[observer.Hook][]HookFunc
	ErrorCaptured func(err error, vm observer.Component, info string) bool
}

type activity int8

const (
	activityUnknown activity = iota
	activityActive
	activityInactive
)

// Instance is a component. It implements observer.Component.
type Instance struct {
	rt   *observer.Runtime
	opts Options

	parent   *Instance
	children []*Instance

	props        *observer.Object
	data         *observer.Object
	computed     map[string]*observer.Watcher
	watchers     []*observer.Watcher
	render       *observer.Watcher
	rendered     any
	updatingProp bool

	mounted        bool
	destroyed      bool
	beingDestroyed bool
	inactive       activity
	directInactive bool
}

var _ observer.Component = (*Instance)(nil)

// New creates and initialises a component: beforeCreate, state, created. It
// does not mount it.
func New(opts Options) *Instance {
	rt := opts.Runtime
	if rt == nil && opts.Parent != nil {
		rt = opts.Parent.rt
	}
	if rt == nil {
		rt = observer.Default()
	}

	vm := &Instance{
		rt:       rt,
		opts:     opts,
		parent:   opts.Parent,
		computed: map[string]*observer.Watcher{},
	}
	if vm.parent != nil {
		vm.parent.children = append(vm.parent.children, vm)
	}

	vm.CallHook(observer.HookBeforeCreate)
	vm.initState()
	vm.CallHook(observer.HookCreated)
	return vm
}

func (vm *Instance) Runtime() *observer.Runtime {
	return vm.rt
}

func (vm *Instance) Name() string {
	if vm.opts.Name == "" {
		return "Anonymous"
	}
	return vm.opts.Name
}

func (vm *Instance) Parent() observer.Component {
	if vm.parent == nil {
		return nil
	}
	return vm.parent
}

func (vm *Instance) Children() []*Instance {
	return slices.Clone(vm.children)
}

func (vm *Instance) RenderWatcher() *observer.Watcher {
	return vm.render
}

func (vm *Instance) IsMounted() bool {
	return vm.mounted
}

func (vm *Instance) IsDestroyed() bool {
	return vm.destroyed
}

func (vm *Instance) IsBeingDestroyed() bool {
	return vm.beingDestroyed
}

func (vm *Instance) IsInactive() bool {
	return vm.inactive == activityInactive
}

func (vm *Instance) AddWatcher(w *observer.Watcher) {
	vm.watchers = append(vm.watchers, w)
}

func (vm *Instance) RemoveWatcher(w *observer.Watcher) {
	if i := slices.Index(vm.watchers, w); i >= 0 {
		vm.watchers = slices.Delete(vm.watchers, i, i+1)
	}
}

// Watchers returns every live watcher owned by the component, render watcher
// included.
func (vm *Instance) Watchers() []*observer.Watcher {
	return slices.Clone(vm.watchers)
}

// CallHook runs the handlers registered for h without tracking dependencies.
// Handler errors go through the runtime's error handling.
func (vm *Instance) CallHook(h observer.Hook) {
	handlers := vm.opts.Hooks[h]
	if len(handlers) == 0 {
		return
	}
	info := fmt.Sprintf("%s hook", h)
	vm.rt.Untracked(func() {
		for _, fn := range handlers {
			vm.rt.Invoke(func() error { return fn(vm) }, vm, info)
		}
	})
}

func (vm *Instance) ErrorCaptured(err error, from observer.Component, info string) bool {
	if vm.opts.ErrorCaptured == nil {
		return true
	}
	return vm.opts.ErrorCaptured(err, from, info)
}

// NextTick runs fn with the component after the pending flush.
func (vm *Instance) NextTick(fn func(vm *Instance) error) <-chan struct{} {
	if fn == nil {
		return vm.rt.NextTick(nil)
	}
	return vm.rt.NextTick(func() error { return fn(vm) })
}
