package observer

import (
	"errors"
	"fmt"
)

// ErrInfiniteUpdate is reported when a watcher keeps re-queueing itself
// within one flush.
var ErrInfiniteUpdate = errors.New("infinite update loop")

// Error is an error raised by user code run by the runtime, annotated with
// where it happened.
type Error struct {
	Info      string
	Component Component
	Err       error
}

func (e *Error) Error() string {
	if e.Component != nil {
		return fmt.Sprintf("error in %s (<%s>): %v", e.Info, e.Component.Name(), e.Err)
	}
	return fmt.Sprintf("error in %s: %v", e.Info, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

// HandleError offers err to the errorCaptured hooks of vm's ancestors, then
// to the configured ErrorHandler. Without a handler the error is logged.
func (rt *Runtime) HandleError(err error, vm Component, info string) {
	// hooks may read reactive state; keep that out of the current evaluation
	rt.PushTarget(nil)
	defer rt.PopTarget()

	if vm != nil {
		for cur := vm.Parent(); cur != nil; cur = cur.Parent() {
			capture := true
			hookErr := rt.call(func() error {
				capture = cur.ErrorCaptured(err, vm, info)
				return nil
			})
			if hookErr != nil {
				rt.globalHandleError(hookErr, cur, "errorCaptured hook")
				continue
			}
			if !capture {
				return
			}
		}
	}
	rt.globalHandleError(err, vm, info)
}

func (rt *Runtime) globalHandleError(err error, vm Component, info string) {
	if h := rt.cfg.errorHandler; h != nil {
		handlerErr := rt.call(func() error {
			h(err, vm, info)
			return nil
		})
		if handlerErr == nil {
			return
		}
		rt.logError(handlerErr, nil, "config.errorHandler")
	}
	rt.logError(err, vm, info)
}

func (rt *Runtime) logError(err error, vm Component, info string) {
	rt.cfg.logger.Printf("[observer error]: %v", &Error{Info: info, Component: vm, Err: err})
}

// Warn reports a development diagnostic. Production runtimes drop warnings.
func (rt *Runtime) Warn(msg string, vm Component) {
	if rt.cfg.production {
		return
	}
	if h := rt.cfg.warnHandler; h != nil {
		h(msg, vm)
		return
	}
	if vm != nil {
		rt.cfg.logger.Printf("[observer warn]: %s (found in <%s>)", msg, vm.Name())
		return
	}
	rt.cfg.logger.Printf("[observer warn]: %s", msg)
}

// Invoke runs fn, turning a returned error or a panic into a HandleError
// call. The error is returned as well.
func (rt *Runtime) Invoke(fn func() error, vm Component, info string) error {
	return rt.invoke(fn, vm, info, false)
}

// invoke is Invoke with surfacing: in development mode surfaced errors are
// also kept for the next Tick.
func (rt *Runtime) invoke(fn func() error, vm Component, info string, surface bool) error {
	err := rt.call(fn)
	if err == nil {
		return nil
	}
	rt.HandleError(err, vm, info)
	if surface && !rt.cfg.production {
		rt.uncaught = append(rt.uncaught, &Error{Info: info, Component: vm, Err: err})
	}
	return err
}

func (rt *Runtime) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn()
}

func (rt *Runtime) takeUncaught() error {
	if len(rt.uncaught) == 0 {
		return nil
	}
	err := errors.Join(rt.uncaught...)
	rt.uncaught = nil
	return err
}
