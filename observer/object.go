package observer

import "slices"

// Descriptor describes one property slot of an Object. A slot is either a
// data slot (Value) or an accessor pair (Get and optionally Set).
type Descriptor struct {
	Value        any
	Get          func() any
	Set          func(v any)
	Configurable bool
}

func (d Descriptor) isAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// Object is an ordered string-keyed container. Plain Objects behave like
// maps; once observed every slot becomes an accessor pair wired to its own
// Dep.
type Object struct {
	keys   []string
	props  map[string]*Descriptor
	ob     *Observer
	frozen bool
}

func NewObject() *Object {
	return &Object{props: map[string]*Descriptor{}}
}

// ObjectOf builds an Object from alternating key/value pairs. Keys must be
// strings.
func ObjectOf(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Put(kv[i].(string), kv[i+1])
	}
	return o
}

// Observer returns the attached observer, nil if the object is not reactive.
func (o *Object) Observer() *Observer {
	return o.ob
}

func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return slices.Clone(o.keys)
}

func (o *Object) Len() int {
	return len(o.keys)
}

// Get returns the value stored under key, running the slot's getter when it
// has one. Missing keys yield nil.
func (o *Object) Get(key string) any {
	p, ok := o.props[key]
	if !ok {
		return nil
	}
	if p.Get != nil {
		return p.Get()
	}
	if p.Set != nil {
		return nil
	}
	return p.Value
}

// Put assigns key. Existing slots go through their setter; a getter without
// a setter drops the write. Unknown keys are added as plain, non-reactive
// slots unless the object is frozen. Use Runtime.Set to add a reactive key.
func (o *Object) Put(key string, value any) {
	p, ok := o.props[key]
	if !ok {
		if o.frozen {
			return
		}
		o.keys = append(o.keys, key)
		o.props[key] = &Descriptor{Value: value, Configurable: true}
		return
	}
	switch {
	case p.Set != nil:
		p.Set(value)
	case p.Get != nil:
	default:
		if o.frozen {
			return
		}
		p.Value = value
	}
}

// Descriptor returns a copy of the slot stored under key.
func (o *Object) Descriptor(key string) (Descriptor, bool) {
	p, ok := o.props[key]
	if !ok {
		return Descriptor{}, false
	}
	return *p, true
}

// DefineProperty installs or replaces a slot. It fails when the existing slot
// is not configurable, or when adding a key to a frozen object.
func (o *Object) DefineProperty(key string, d Descriptor) bool {
	p, ok := o.props[key]
	if ok {
		if !p.Configurable {
			return false
		}
		*p = d
		return true
	}
	if o.frozen {
		return false
	}
	o.keys = append(o.keys, key)
	o.props[key] = &d
	return true
}

// Remove deletes a configurable slot. It does not notify; use Runtime.Delete
// for reactive removal.
func (o *Object) Remove(key string) bool {
	p, ok := o.props[key]
	if !ok || !p.Configurable || o.frozen {
		return false
	}
	delete(o.props, key)
	if i := slices.Index(o.keys, key); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return true
}

// Freeze makes the object non-extensible and all slots non-configurable.
// Frozen objects are never observed.
func (o *Object) Freeze() *Object {
	o.frozen = true
	for _, p := range o.props {
		p.Configurable = false
	}
	return o
}

func (o *Object) IsFrozen() bool {
	return o.frozen
}

// ToMap returns a shallow snapshot of the current values.
func (o *Object) ToMap() map[string]any {
	m := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		m[k] = o.Get(k)
	}
	return m
}
