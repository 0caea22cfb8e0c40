package observer

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/petermattis/goid"
)

var (
	ErrLoopClosed  = errors.New("loop closed")
	ErrLoopRunning = errors.New("loop already running")
)

// Loop owns a Runtime and serialises access to it. Every task runs on the
// loop goroutine and is followed by a microtask checkpoint, so batched
// flushes and next-tick callbacks happen before the next task starts.
type Loop struct {
	rt      *Runtime
	tasks   chan func()
	local   []func()
	done    chan struct{}
	running atomic.Bool
	gid     atomic.Int64
	onError func(error)
}

// NewLoop creates a loop for rt with room for size pending tasks.
func NewLoop(rt *Runtime, size int) *Loop {
	return &Loop{
		rt:    rt,
		tasks: make(chan func(), max(size, 0)),
		done:  make(chan struct{}),
	}
}

func (l *Loop) Runtime() *Runtime {
	return l.rt
}

// OnError sets the function receiving errors surfaced by Runtime.Tick after
// plain Submit tasks. Must be called before Run.
func (l *Loop) OnError(fn func(error)) {
	l.onError = fn
}

// Run processes tasks until ctx is done. A loop can only be run once.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	l.gid.Store(goid.Get())
	defer func() {
		l.gid.Store(0)
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.runTask(fn)
			for len(l.local) > 0 {
				next := l.local[0]
				l.local[0] = nil
				l.local = l.local[1:]
				l.runTask(next)
			}
			l.local = nil
		}
	}
}

func (l *Loop) runTask(fn func()) {
	err := l.rt.call(func() error {
		fn()
		return nil
	})
	err = errors.Join(err, l.rt.Tick())
	if err != nil && l.onError != nil {
		l.onError(err)
	}
}

func (l *Loop) onLoop() bool {
	return l.gid.Load() == goid.Get()
}

// Submit schedules fn on the loop. Called from the loop goroutine itself, fn
// runs after the current task.
func (l *Loop) Submit(ctx context.Context, fn func()) error {
	if l.onLoop() {
		l.local = append(l.local, fn)
		return nil
	}
	select {
	case <-l.done:
		return ErrLoopClosed
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopClosed
	}
}

// Do runs fn on the loop, waits for the following microtask checkpoint and
// returns fn's error joined with any error the checkpoint surfaced. Called
// from the loop goroutine, fn runs inline.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	if l.onLoop() {
		return l.rt.call(fn)
	}
	errc := make(chan error, 1)
	err := l.Submit(ctx, func() {
		err := l.rt.call(fn)
		errc <- errors.Join(err, l.rt.Tick())
	})
	if err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrLoopClosed
		}
	}
}
