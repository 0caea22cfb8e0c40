package instance

import (
	"fmt"
	"maps"
	"slices"

	"github.com/delaneyj/watchparty/observer"
)

func (vm *Instance) initState() {
	vm.initProps()
	vm.initData()
	vm.initComputed()
	vm.initWatch()
}

func (vm *Instance) initProps() {
	rt := vm.rt
	vm.props = observer.NewObject()
	if len(vm.opts.Props) == 0 {
		return
	}
	isRoot := vm.parent == nil

	load := func() {
		for _, key := range slices.Sorted(maps.Keys(vm.opts.Props)) {
			value := vm.propValue(key)
			rt.DefineReactive(vm.props, key, value, observer.WithCustomSetter(func() {
				if !isRoot && !vm.updatingProp {
					rt.Warn(fmt.Sprintf("Avoid mutating a prop directly since the value will be overwritten whenever the parent component re-renders. Instead, use a data or computed property based on the prop's value. Prop being mutated: %q", key), vm)
				}
			}))
		}
	}
	// values handed down by a parent are already reactive on the parent side
	if isRoot {
		load()
	} else {
		rt.WithoutObserving(load)
	}
}

func (vm *Instance) propValue(key string) any {
	if v, ok := vm.opts.PropsData[key]; ok {
		return v
	}
	def := vm.opts.Props[key]
	if def.Default == nil {
		return nil
	}
	value := def.Default()
	// defaults are fresh copies owned by this component
	prev := vm.rt.IsObserving()
	vm.rt.ToggleObserving(true)
	vm.rt.Observe(value, false)
	vm.rt.ToggleObserving(prev)
	return value
}

func (vm *Instance) initData() {
	rt := vm.rt
	var raw map[string]any
	if vm.opts.Data != nil {
		rt.Untracked(func() {
			err := rt.Invoke(func() error {
				var err error
				raw, err = vm.opts.Data(vm)
				return err
			}, vm, "data()")
			if err != nil {
				raw = nil
			}
		})
	}

	data, _ := observer.From(raw).(*observer.Object)
	if data == nil {
		data = observer.NewObject()
	}
	for _, key := range data.Keys() {
		if vm.props.Has(key) {
			rt.Warn(fmt.Sprintf("The data property %q is already declared as a prop. Use prop default value instead.", key), vm)
		}
	}
	vm.data = data
	rt.Observe(data, true)
}

func (vm *Instance) initComputed() {
	rt := vm.rt
	for _, key := range slices.Sorted(maps.Keys(vm.opts.Computed)) {
		def := vm.opts.Computed[key]
		get := def.Get
		if get == nil {
			rt.Warn(fmt.Sprintf("Getter is missing for computed property %q.", key), vm)
			get = func(*Instance) (any, error) { return nil, nil }
		}
		switch {
		case vm.data.Has(key):
			rt.Warn(fmt.Sprintf("The computed property %q is already defined in data.", key), vm)
		case vm.props.Has(key):
			rt.Warn(fmt.Sprintf("The computed property %q is already defined as a prop.", key), vm)
		}
		vm.computed[key] = rt.NewWatcher(vm, observer.Getter(func(observer.Component) (any, error) {
			return get(vm)
		}), nil, &observer.WatcherOptions{Lazy: true})
	}
}

func (vm *Instance) initWatch() {
	for _, key := range slices.Sorted(maps.Keys(vm.opts.Watch)) {
		for _, def := range vm.opts.Watch[key] {
			if def.Handler == nil {
				continue
			}
			handler := def.Handler
			vm.Watch(key, func(n, o any) error {
				return handler(vm, n, o)
			}, WatchOptions{Deep: def.Deep, Immediate: def.Immediate, Sync: def.Sync})
		}
	}
}

// Get reads a computed property, a prop or a data property, in that order.
func (vm *Instance) Get(key string) any {
	if w, ok := vm.computed[key]; ok {
		def := vm.opts.Computed[key]
		if def.NoCache && def.Get != nil {
			v, err := def.Get(vm)
			if err != nil {
				vm.rt.HandleError(err, vm, fmt.Sprintf("getter for computed %q", key))
				return nil
			}
			return v
		}
		return w.Read()
	}
	if vm.props.Has(key) {
		return vm.props.Get(key)
	}
	return vm.data.Get(key)
}

// Set writes a data property, a prop (warning when the component is not the
// root) or a computed property with a setter.
func (vm *Instance) Set(key string, value any) {
	if _, ok := vm.computed[key]; ok {
		def := vm.opts.Computed[key]
		if def.Set == nil {
			vm.rt.Warn(fmt.Sprintf("Computed property %q was assigned to but it has no setter.", key), vm)
			return
		}
		def.Set(vm, value)
		return
	}
	if vm.props.Has(key) {
		vm.props.Put(key, value)
		return
	}
	if !vm.data.Has(key) {
		vm.rt.Warn(fmt.Sprintf("Property %q is not defined on the instance. Declare it in data or use the runtime's Set.", key), vm)
		return
	}
	vm.data.Put(key, value)
}

// UpdateProps is how a parent hands down new prop values.
func (vm *Instance) UpdateProps(propsData map[string]any) {
	vm.updatingProp = true
	defer func() { vm.updatingProp = false }()
	vm.rt.WithoutObserving(func() {
		for _, key := range slices.Sorted(maps.Keys(propsData)) {
			if _, ok := vm.opts.Props[key]; ok {
				vm.props.Put(key, propsData[key])
			}
		}
	})
	vm.opts.PropsData = propsData
}

// Data is the component's reactive root data.
func (vm *Instance) Data() *observer.Object {
	return vm.data
}

func (vm *Instance) Props() *observer.Object {
	return vm.props
}

type WatchOptions struct {
	Deep      bool
	Immediate bool
	Sync      bool
}

// Watch registers a user watcher. expOrFn is a dotted path, a
// func(*Instance) any or anything observer.NewWatcher accepts. The returned
// function stops watching.
func (vm *Instance) Watch(expOrFn any, cb func(newValue, oldValue any) error, opts WatchOptions) func() {
	if fn, ok := expOrFn.(func(*Instance) any); ok {
		expOrFn = observer.Getter(func(observer.Component) (any, error) { return fn(vm), nil })
	}
	w := vm.rt.NewWatcher(vm, expOrFn, cb, &observer.WatcherOptions{
		User: true,
		Deep: opts.Deep,
		Sync: opts.Sync,
	})
	if opts.Immediate && cb != nil {
		info := fmt.Sprintf("callback for immediate watcher %q", w.Expression())
		vm.rt.Untracked(func() {
			vm.rt.Invoke(func() error { return cb(w.Value(), nil) }, vm, info)
		})
	}
	return w.Teardown
}
