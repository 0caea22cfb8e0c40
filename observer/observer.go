package observer

import (
	"fmt"
	"sort"
)

// Observer is attached to each observed container. It owns the container's
// Dep, which is notified on structural changes (keys added or removed through
// Set/Delete, array mutations).
type Observer struct {
	rt      *Runtime
	value   any
	dep     *Dep
	vmCount int
}

func (ob *Observer) Dep() *Dep {
	return ob.dep
}

// Value returns the observed *Object or *Array.
func (ob *Observer) Value() any {
	return ob.value
}

// VMCount is the number of components using the container as root data.
func (ob *Observer) VMCount() int {
	return ob.vmCount
}

// ReleaseRoot undoes one asRootData registration.
func (ob *Observer) ReleaseRoot() {
	if ob.vmCount > 0 {
		ob.vmCount--
	}
}

func newObserver(rt *Runtime, value any) *Observer {
	ob := &Observer{rt: rt, value: value, dep: rt.NewDep()}
	switch v := value.(type) {
	case *Object:
		v.ob = ob
		ob.walk(v)
	case *Array:
		v.ob = ob
		ob.observeArray(v.items)
	}
	return ob
}

func (ob *Observer) walk(obj *Object) {
	for _, key := range obj.Keys() {
		ob.rt.defineReactive(obj, key, nil, false, nil, false)
	}
}

func (ob *Observer) observeArray(items []any) {
	for _, item := range items {
		ob.rt.Observe(item, false)
	}
}

// Observe makes value reactive and returns its observer. Only *Object and
// *Array values are observable; anything else yields nil. Observing an
// already observed container returns the existing observer.
func (rt *Runtime) Observe(value any, asRootData bool) *Observer {
	var ob *Observer
	switch v := value.(type) {
	case *Object:
		if v == nil {
			return nil
		}
		if v.ob != nil {
			ob = v.ob
		} else if rt.shouldObserve && !v.frozen {
			ob = newObserver(rt, v)
		}
	case *Array:
		if v == nil {
			return nil
		}
		if v.ob != nil {
			ob = v.ob
		} else if rt.shouldObserve && !v.frozen {
			ob = newObserver(rt, v)
		}
	default:
		return nil
	}
	if asRootData && ob != nil {
		ob.vmCount++
	}
	return ob
}

// PropertyOption tunes DefineReactive.
type PropertyOption func(*propertyOptions)

type propertyOptions struct {
	customSetter func()
	shallow      bool
}

// Shallow keeps nested containers of the property non-reactive.
func Shallow() PropertyOption {
	return func(o *propertyOptions) {
		o.shallow = true
	}
}

// WithCustomSetter runs fn before every effective write in development mode.
func WithCustomSetter(fn func()) PropertyOption {
	return func(o *propertyOptions) {
		o.customSetter = fn
	}
}

// DefineReactive turns obj[key] into a reactive slot holding val.
func (rt *Runtime) DefineReactive(obj *Object, key string, val any, opts ...PropertyOption) {
	var po propertyOptions
	for _, opt := range opts {
		opt(&po)
	}
	rt.defineReactive(obj, key, val, true, po.customSetter, po.shallow)
}

func (rt *Runtime) defineReactive(obj *Object, key string, val any, hasVal bool, customSetter func(), shallow bool) {
	dep := rt.NewDep()

	property, exists := obj.Descriptor(key)
	if exists && !property.Configurable {
		return
	}

	getter, setter := property.Get, property.Set
	if exists && !hasVal && (getter == nil || setter != nil) {
		val = obj.Get(key)
	}

	var childOb *Observer
	if !shallow {
		childOb = rt.Observe(val, false)
	}

	obj.DefineProperty(key, Descriptor{
		Configurable: true,
		Get: func() any {
			value := val
			if getter != nil {
				value = getter()
			}
			if rt.target != nil {
				dep.Depend()
				if childOb != nil {
					childOb.dep.Depend()
					if arr, ok := value.(*Array); ok {
						dependArray(arr)
					}
				}
			}
			return value
		},
		Set: func(newVal any) {
			value := val
			if getter != nil {
				value = getter()
			}
			if same(newVal, value) {
				return
			}
			if !rt.cfg.production && customSetter != nil {
				customSetter()
			}
			if getter != nil && setter == nil {
				rt.Warn(fmt.Sprintf(`Cannot assign to read-only property %q.`, key), nil)
				return
			}
			if setter != nil {
				setter(newVal)
			} else {
				val = newVal
			}
			if !shallow {
				childOb = rt.Observe(newVal, false)
			} else {
				childOb = nil
			}
			dep.Notify()
		},
	})
}

// dependArray collects dependencies on array elements, since element access
// by index cannot be intercepted.
func dependArray(arr *Array) {
	for _, e := range arr.items {
		switch c := e.(type) {
		case *Object:
			if c != nil && c.ob != nil {
				c.ob.dep.Depend()
			}
		case *Array:
			if c != nil {
				if c.ob != nil {
					c.ob.dep.Depend()
				}
				dependArray(c)
			}
		}
	}
}

// Set assigns target[key] and makes sure the change is observable, adding a
// reactive slot for keys the binder has not seen yet. target is an *Object
// (string key) or an *Array (int index).
func (rt *Runtime) Set(target any, key any, val any) any {
	switch t := target.(type) {
	case *Array:
		idx, ok := key.(int)
		if !ok || idx < 0 {
			rt.Warn(fmt.Sprintf("Cannot set reactive property %v on an array.", key), nil)
			return val
		}
		for len(t.items) < idx {
			t.items = append(t.items, nil)
		}
		t.Splice(idx, 1, val)
		return val

	case *Object:
		k, ok := key.(string)
		if !ok {
			rt.Warn(fmt.Sprintf("Cannot set reactive property %v: object keys must be strings.", key), nil)
			return val
		}
		if t.Has(k) {
			t.Put(k, val)
			return val
		}
		ob := t.ob
		if ob != nil && ob.vmCount > 0 {
			rt.Warn("Avoid adding reactive properties to a component's root data at runtime - declare it upfront in the data option.", nil)
			return val
		}
		if ob == nil {
			t.Put(k, val)
			return val
		}
		rt.defineReactive(t, k, val, true, nil, false)
		ob.dep.Notify()
		return val

	default:
		rt.Warn(fmt.Sprintf("Cannot set reactive property on undefined, null, or primitive value: %v", target), nil)
		return val
	}
}

// Delete removes target[key] and notifies the container's dep when it is
// observed.
func (rt *Runtime) Delete(target any, key any) {
	switch t := target.(type) {
	case *Array:
		idx, ok := key.(int)
		if !ok || idx < 0 || idx >= len(t.items) {
			return
		}
		t.Splice(idx, 1)

	case *Object:
		k, ok := key.(string)
		if !ok {
			return
		}
		ob := t.ob
		if ob != nil && ob.vmCount > 0 {
			rt.Warn("Avoid deleting properties on a component's root data - just set it to nil.", nil)
			return
		}
		if !t.Has(k) {
			return
		}
		if !t.Remove(k) {
			return
		}
		if ob == nil {
			return
		}
		ob.dep.Notify()

	default:
		rt.Warn(fmt.Sprintf("Cannot delete reactive property on undefined, null, or primitive value: %v", target), nil)
	}
}

// From converts plain Go data into containers: map[string]any becomes an
// *Object with sorted keys and []any becomes an *Array, recursively. Other
// values are returned unchanged.
func From(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		o := NewObject()
		for _, k := range keys {
			o.Put(k, From(t[k]))
		}
		return o
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = From(item)
		}
		return NewArray(items...)
	default:
		return v
	}
}
