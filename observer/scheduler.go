package observer

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// FlushInfo summarises one scheduler flush. It is handed to every FlushHook
// once the flush and its post-flush hooks completed.
type FlushInfo struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	// Runs counts watcher runs by kind. A watcher that re-queued itself
	// during the flush is counted once per run.
	Runs      map[string]int `json:"runs"`
	Abandoned []string       `json:"abandoned,omitempty"`
	Activated int            `json:"activated"`
	Updated   int            `json:"updated"`
}

// Total is the number of watcher runs in the flush.
func (fi FlushInfo) Total() int {
	n := 0
	for _, c := range fi.Runs {
		n += c
	}
	return n
}

// FlushHook observes completed flushes.
type FlushHook interface {
	OnFlush(info FlushInfo)
}

// FlushHookFunc adapts a function to FlushHook.
type FlushHookFunc func(info FlushInfo)

func (f FlushHookFunc) OnFlush(info FlushInfo) {
	f(info)
}

type scheduler struct {
	queue     []*Watcher
	activated []Component
	has       mapset.Set[uint64]
	abandoned mapset.Set[uint64]
	circular  map[uint64]int
	waiting   bool
	flushing  bool
	index     int
}

func (s *scheduler) reset() {
	s.queue = nil
	s.activated = nil
	s.has = newIDSet()
	s.abandoned = newIDSet()
	s.circular = map[uint64]int{}
	s.waiting = false
	s.flushing = false
	s.index = 0
}

// Flushing reports whether a scheduler flush is in progress.
func (rt *Runtime) Flushing() bool {
	return rt.sched.flushing
}

// queueWatcher adds w to the pending batch. Watchers already queued are
// ignored. During a flush w is spliced in by id after the cursor so the
// running flush still picks it up.
func (rt *Runtime) queueWatcher(w *Watcher) {
	s := &rt.sched
	id := w.id
	if s.has.Contains(id) || s.abandoned.Contains(id) {
		return
	}
	s.has.Add(id)

	if !s.flushing {
		s.queue = append(s.queue, w)
	} else {
		i := len(s.queue) - 1
		for i > s.index && s.queue[i].id > id {
			i--
		}
		s.queue = slices.Insert(s.queue, i+1, w)
	}

	if s.waiting {
		return
	}
	s.waiting = true
	if !rt.cfg.async {
		rt.flushSchedulerQueue()
		return
	}
	rt.NextTick(func() error {
		rt.flushSchedulerQueue()
		return nil
	})
}

// QueueActivatedComponent registers vm for the activated notification at the
// end of the current flush. Used by keep-alive style caches that re-insert a
// component while a patch is running.
func (rt *Runtime) QueueActivatedComponent(vm Component) {
	vm.SetInactive(false)
	rt.sched.activated = append(rt.sched.activated, vm)
}

func (rt *Runtime) flushSchedulerQueue() {
	s := &rt.sched
	info := FlushInfo{
		Started: time.Now(),
		Runs:    map[string]int{},
	}
	s.flushing = true

	// Parents are created before children, and a component's user watchers
	// before its render watcher, so id order is update order.
	slices.SortFunc(s.queue, func(a, b *Watcher) int { return cmp.Compare(a.id, b.id) })

	// the queue may grow while running
	for s.index = 0; s.index < len(s.queue); s.index++ {
		w := s.queue[s.index]
		id := w.id
		if s.abandoned.Contains(id) {
			continue
		}
		if w.before != nil {
			rt.invoke(func() error { w.before(); return nil }, w.vm, "before hook", false)
		}
		s.has.Remove(id)
		w.run()
		info.Runs[w.Kind().String()]++

		if s.has.Contains(id) {
			s.circular[id]++
			if s.circular[id] > rt.cfg.maxUpdateCount {
				s.has.Remove(id)
				s.abandoned.Add(id)
				info.Abandoned = append(info.Abandoned, w.expression)
				rt.reportInfiniteUpdate(w)
			}
		}
	}

	activatedQueue := slices.Clone(s.activated)
	updatedQueue := slices.Clone(s.queue)
	s.reset()

	info.Activated = callActivatedHooks(activatedQueue)
	info.Updated = callUpdatedHooks(updatedQueue)
	info.Duration = time.Since(info.Started)

	for _, h := range rt.cfg.flushHooks {
		rt.invoke(func() error { h.OnFlush(info); return nil }, nil, "flush hook", false)
	}
}

func (rt *Runtime) reportInfiniteUpdate(w *Watcher) {
	msg := "You may have an infinite update loop "
	if w.user {
		msg += fmt.Sprintf("in watcher with expression %q", w.expression)
	} else {
		msg += "in a component render function."
	}
	rt.Warn(msg, w.vm)
	err := fmt.Errorf("%w: watcher %q re-queued more than %d times", ErrInfiniteUpdate, w.expression, rt.cfg.maxUpdateCount)
	rt.HandleError(err, w.vm, "scheduler flush")
}

func callActivatedHooks(queue []Component) int {
	for _, vm := range queue {
		vm.SetInactive(true)
		vm.Activate(true)
	}
	return len(queue)
}

func callUpdatedHooks(queue []*Watcher) int {
	n := 0
	for i := len(queue) - 1; i >= 0; i-- {
		w := queue[i]
		vm := w.vm
		if vm == nil || vm.RenderWatcher() != w {
			continue
		}
		if vm.IsMounted() && !vm.IsDestroyed() {
			vm.CallHook(HookUpdated)
			n++
		}
	}
	return n
}
