package observer

import (
	"sync"

	"github.com/petermattis/goid"
)

var runtimes sync.Map

// Default returns the calling goroutine's runtime, creating one with default
// options on first use.
func Default() *Runtime {
	gid := goid.Get()
	if rt, ok := runtimes.Load(gid); ok {
		return rt.(*Runtime)
	}
	rt := NewRuntime()
	runtimes.Store(gid, rt)
	return rt
}

// ReleaseDefault forgets the calling goroutine's default runtime. Goroutines
// that used Default should call it before exiting.
func ReleaseDefault() {
	runtimes.Delete(goid.Get())
}
