// FILE: lixenwraith/settings/timing.go
package settings

import "time"

// Core timing and sizing constants.
const (
	// DefaultPollPeriod is the minimum time between two stats of the config file.
	// The file is only stat'd when a setting is accessed.
	DefaultPollPeriod = 5 * time.Second

	// DefaultCacheSize is the cache budget in megabytes when nothing better is known.
	DefaultCacheSize uint64 = 1024

	// Bounds applied to a detected cache budget (megabytes)
	MinDetectedCacheSize uint64 = 64
	MaxDetectedCacheSize uint64 = 4096

	// MaxFileSize caps how much of the config file is read on reload
	MaxFileSize = 1 << 20
)

// detectedCacheDivisor is the share of the memory limit handed to the cache (1/4)
const detectedCacheDivisor = 4
