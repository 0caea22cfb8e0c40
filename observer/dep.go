package observer

import (
	"slices"
	"sort"
)

// Dep is a publish point for one reactive slot or one observed container.
// Watchers that read the slot while evaluating are subscribed; Notify tells
// all of them that the slot changed.
type Dep struct {
	rt   *Runtime
	id   uint64
	subs []*Watcher
}

func (rt *Runtime) NewDep() *Dep {
	return &Dep{rt: rt, id: rt.nextDepID()}
}

func (d *Dep) ID() uint64 {
	return d.id
}

// Subscribers returns a copy of the current subscriber list.
func (d *Dep) Subscribers() []*Watcher {
	return slices.Clone(d.subs)
}

func (d *Dep) AddSub(w *Watcher) {
	if slices.Contains(d.subs, w) {
		return
	}
	d.subs = append(d.subs, w)
}

func (d *Dep) RemoveSub(w *Watcher) {
	if i := slices.Index(d.subs, w); i >= 0 {
		d.subs = slices.Delete(d.subs, i, i+1)
	}
}

// Depend registers this dep with the watcher currently evaluating, if any.
func (d *Dep) Depend() {
	if t := d.rt.target; t != nil {
		t.AddDep(d)
	}
}

// Notify runs update on a stable snapshot of the subscribers. Watchers added
// or removed while notifying are not affected until the next call.
func (d *Dep) Notify() {
	subs := slices.Clone(d.subs)
	if !d.rt.cfg.async {
		// flushes are synchronous here, so order must come from the dep itself
		sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	}
	for _, sub := range subs {
		sub.update()
	}
}
