package depwatch

import (
	"sync"

	"github.com/petermattis/goid"
)

var systems sync.Map

// Default returns the calling goroutine's system, creating it on first
// use. Errors go to the default logger.
func Default() *ReactiveSystem {
	gid := goid.Get()
	if rs, ok := systems.Load(gid); ok {
		return rs.(*ReactiveSystem)
	}

	rs := CreateReactiveSystem(nil)
	systems.Store(gid, rs)
	return rs
}

// Release forgets the calling goroutine's default system.
func Release() {
	systems.Delete(goid.Get())
}
