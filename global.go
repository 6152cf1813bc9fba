// FILE: lixenwraith/settings/global.go
package settings

import "sync"

var (
	globalOnce  sync.Once
	globalStore *Store
)

// Global returns the process-wide Store, creating it on first call with
// detected platform defaults and the default per-user config file.
// Construction failure panics: nothing sized from these settings can start.
//
// Code that needs to be tested in isolation should take a Provider or *Store
// instead of calling Global directly.
func Global() *Store {
	globalOnce.Do(func() {
		globalStore = NewBuilder().
			WithDefaults(DetectNumThreads(), DetectCacheSize()).
			MustBuild()
	})
	return globalStore
}

// DefaultNumThreads returns the global default thread count for worker pools.
func DefaultNumThreads() int {
	return Global().NumThreads()
}

// SystemCacheSize returns the global cache budget in megabytes.
func SystemCacheSize() uint64 {
	return Global().CacheSize()
}
