package observer

// Deferrer schedules fn to run after the current synchronous stretch of work
// and before the next externally observable task.
type Deferrer interface {
	Defer(fn func())
}

// DeferFunc adapts a function to Deferrer.
type DeferFunc func(fn func())

func (f DeferFunc) Defer(fn func()) {
	f(fn)
}

// Microtasks is a FIFO of deferred functions drained explicitly. It is the
// default Deferrer of a Runtime; Runtime.Tick and Loop drain it.
type Microtasks struct {
	queue []func()
}

func (m *Microtasks) Defer(fn func()) {
	m.queue = append(m.queue, fn)
}

func (m *Microtasks) Len() int {
	return len(m.queue)
}

// Drain runs queued functions until the queue is empty, including functions
// deferred while draining. It returns how many ran.
func (m *Microtasks) Drain() int {
	n := 0
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		fn()
		n++
	}
	m.queue = nil
	return n
}

// NextTick queues cb to run after the pending flush. Callbacks registered in
// the same tick run in registration order as one batch. The returned channel
// is closed once cb ran; cb may be nil to only wait.
func (rt *Runtime) NextTick(cb func() error) <-chan struct{} {
	done := make(chan struct{})
	rt.callbacks = append(rt.callbacks, func() {
		defer close(done)
		if cb != nil {
			rt.invoke(cb, nil, "nextTick", false)
		}
	})
	if !rt.pending {
		rt.pending = true
		rt.deferrer.Defer(rt.flushCallbacks)
	}
	return done
}

func (rt *Runtime) flushCallbacks() {
	rt.pending = false
	copies := rt.callbacks
	rt.callbacks = nil
	for _, cb := range copies {
		cb()
	}
}
