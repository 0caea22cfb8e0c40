package observer

import "log"

// DefaultMaxUpdateCount is how many times a single watcher may re-enter the
// queue during one flush before it is treated as an infinite update loop.
const DefaultMaxUpdateCount = 100

// ErrorHandler receives evaluation and callback errors together with the
// component they belong to (may be nil) and a short description of where the
// error happened.
type ErrorHandler func(err error, vm Component, info string)

// WarnHandler receives development diagnostics.
type WarnHandler func(msg string, vm Component)

type config struct {
	async          bool
	production     bool
	maxUpdateCount int
	errorHandler   ErrorHandler
	warnHandler    WarnHandler
	logger         *log.Logger
	deferrer       Deferrer
	flushHooks     []FlushHook
}

func defaultConfig() config {
	return config{
		async:          true,
		maxUpdateCount: DefaultMaxUpdateCount,
	}
}

// Option configures a Runtime.
type Option func(*config)

// WithAsync controls batching. When false every queued watcher flushes
// synchronously and Dep.Notify runs subscribers in id order.
func WithAsync(async bool) Option {
	return func(c *config) {
		c.async = async
	}
}

// WithProduction disables development warnings and the surfacing of user
// watcher callback errors through Tick.
func WithProduction(production bool) Option {
	return func(c *config) {
		c.production = production
	}
}

func WithMaxUpdateCount(n int) Option {
	return func(c *config) {
		c.maxUpdateCount = n
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		c.errorHandler = h
	}
}

func WithWarnHandler(h WarnHandler) Option {
	return func(c *config) {
		c.warnHandler = h
	}
}

// WithLogger sets the logger used for warnings and unhandled errors when no
// handler is configured. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithDeferrer replaces the runtime's built-in microtask queue.
func WithDeferrer(d Deferrer) Option {
	return func(c *config) {
		c.deferrer = d
	}
}

// WithFlushHook registers a hook notified after every scheduler flush. May be
// given more than once.
func WithFlushHook(h FlushHook) Option {
	return func(c *config) {
		if h != nil {
			c.flushHooks = append(c.flushHooks, h)
		}
	}
}
