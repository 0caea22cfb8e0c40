package instance

import (
	"slices"

	"github.com/delaneyj/watchparty/observer"
)

// Mount creates the render watcher, renders once and fires mounted.
func (vm *Instance) Mount() *Instance {
	if vm.mounted || vm.destroyed {
		return vm
	}
	render := vm.opts.Render
	if render == nil {
		vm.rt.Warn("Failed to mount component: render function not defined.", vm)
		render = func(*Instance) (any, error) { return nil, nil }
	}

	vm.CallHook(observer.HookBeforeMount)
	vm.render = vm.rt.NewWatcher(vm, observer.Getter(func(observer.Component) (any, error) {
		out, err := render(vm)
		if err != nil {
			return vm.rendered, err
		}
		vm.rendered = out
		return out, nil
	}), nil, &observer.WatcherOptions{
		Render: true,
		Before: func() {
			if vm.mounted && !vm.destroyed {
				vm.CallHook(observer.HookBeforeUpdate)
			}
		},
	})
	vm.mounted = true
	vm.CallHook(observer.HookMounted)
	return vm
}

// Rendered is the output of the last successful render.
func (vm *Instance) Rendered() any {
	return vm.rendered
}

// ForceUpdate schedules a re-render even though no dependency changed.
func (vm *Instance) ForceUpdate() {
	if vm.render != nil {
		vm.render.Update()
	}
}

// Destroy tears down children, watchers and the root data registration.
// Calling it twice is a no-op.
func (vm *Instance) Destroy() {
	if vm.beingDestroyed {
		return
	}
	vm.CallHook(observer.HookBeforeDestroy)
	vm.beingDestroyed = true

	if p := vm.parent; p != nil && !p.beingDestroyed {
		if i := slices.Index(p.children, vm); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	for i := len(vm.children) - 1; i >= 0; i-- {
		vm.children[i].Destroy()
	}
	for i := len(vm.watchers) - 1; i >= 0; i-- {
		vm.watchers[i].Teardown()
	}
	vm.watchers = nil
	if ob := vm.data.Observer(); ob != nil {
		ob.ReleaseRoot()
	}

	vm.destroyed = true
	vm.CallHook(observer.HookDestroyed)
}

func (vm *Instance) SetInactive(inactive bool) {
	if inactive {
		vm.inactive = activityInactive
	} else {
		vm.inactive = activityActive
	}
}

func (vm *Instance) inInactiveTree() bool {
	for p := vm.parent; p != nil; p = p.parent {
		if p.inactive == activityInactive {
			return true
		}
	}
	return false
}

// Activate brings a cached component subtree back. direct is true for the
// component that was re-inserted itself; descendants are activated
// indirectly and stay inactive if they were deactivated directly.
func (vm *Instance) Activate(direct bool) {
	if direct {
		vm.directInactive = false
		if vm.inInactiveTree() {
			return
		}
	} else if vm.directInactive {
		return
	}
	if vm.inactive == activityActive {
		return
	}
	vm.inactive = activityActive
	for _, c := range vm.children {
		c.Activate(false)
	}
	vm.CallHook(observer.HookActivated)
}

// Deactivate is the inverse of Activate, used when a cached component is
// taken out without being destroyed.
func (vm *Instance) Deactivate(direct bool) {
	if direct {
		vm.directInactive = true
		if vm.inInactiveTree() {
			return
		}
	}
	if vm.inactive == activityInactive {
		return
	}
	vm.inactive = activityInactive
	for _, c := range vm.children {
		c.Deactivate(false)
	}
	vm.CallHook(observer.HookDeactivated)
}
