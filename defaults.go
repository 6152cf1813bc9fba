// FILE: lixenwraith/settings/defaults.go
package settings

import (
	"runtime"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/docker/go-units"
)

// memoryLimitProvider is swapped in tests
var memoryLimitProvider = memlimit.ApplyFallback(
	memlimit.FromCgroup,
	memlimit.FromSystem,
)

// DetectNumThreads returns the platform thread count default: GOMAXPROCS.
// Binaries running in containers should apply automaxprocs before the first
// call so that CPU quotas are honoured.
func DetectNumThreads() int {
	return runtime.GOMAXPROCS(0)
}

// DetectCacheSize derives a cache budget in megabytes from the memory limit of
// the cgroup, or of the machine when there is none. A quarter of the limit is
// used, clamped to [MinDetectedCacheSize, MaxDetectedCacheSize]. If no limit
// can be found DefaultCacheSize is returned.
func DetectCacheSize() uint64 {
	limit, err := memoryLimitProvider()
	if err != nil || limit == 0 {
		return DefaultCacheSize
	}

	mb := limit / detectedCacheDivisor / units.MiB
	switch {
	case mb < MinDetectedCacheSize:
		return MinDetectedCacheSize
	case mb > MaxDetectedCacheSize:
		return MaxDetectedCacheSize
	default:
		return mb
	}
}
