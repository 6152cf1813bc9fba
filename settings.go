// FILE: lixenwraith/settings/settings.go
package settings

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// LogRule is one line of a [logfile <target>] section. The store does not
// interpret it; rules are handed to the LogConfigurator after each reload.
type LogRule struct {
	Target string
	Rule   string
}

// LogConfigurator receives the complete set of log rules found in the config
// file every time the file is reloaded.
type LogConfigurator interface {
	ApplyLogRules(rules []LogRule)
}

// Provider is the read side of the store, for consumers that size thread
// pools or caches and should not depend on the concrete type.
type Provider interface {
	NumThreads() int
	CacheSize() uint64
}

var _ Provider = (*Store)(nil)

// setting holds a value and whether it was ever assigned by code or by file
type setting[T any] struct {
	value      T
	overridden bool
}

func (s *setting[T]) set(v T) {
	s.value = v
	s.overridden = true
}

// Snapshot is a consistent view of all settings taken under one lock.
type Snapshot struct {
	NumThreads           int    `yaml:"default_num_threads"`
	NumThreadsOverridden bool   `yaml:"default_num_threads_overridden"`
	CacheSize            uint64 `yaml:"system_cache_size"`
	CacheSizeOverridden  bool   `yaml:"system_cache_size_overridden"`
}

// Store manages the process settings and their reload from a config file.
// Use Global() for the process-wide instance, or NewBuilder() for an isolated one.
type Store struct {
	// Settings lock: values, override flags, last applied reload generation
	mu         sync.RWMutex
	numThreads setting[int]
	cacheSize  setting[uint64]
	appliedGen uint64

	// Poll-time lock: the only state touched on the hot path
	pollMu     sync.Mutex
	pollPeriod time.Duration
	lastPoll   time.Time

	// File lock: serializes stat + read of the config file
	fileMu      sync.Mutex
	filePath    string
	lastModTime time.Time
	readGen     uint64

	// Orders log rule forwarding between concurrent reloads
	rulesMu  sync.Mutex
	rulesGen uint64

	clock             clockwork.Clock
	fs                afero.Fs
	logger            *zap.Logger
	metrics           *Metrics
	logConf           LogConfigurator
	verifyPermissions bool
}

// NumThreads returns the default number of worker threads.
// It may reload the config file first if the poll period has elapsed.
func (s *Store) NumThreads() int {
	s.poll()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numThreads.value
}

// SetNumThreads overrides the default number of worker threads.
// The value holds until the next explicit call or a reload that names it.
func (s *Store) SetNumThreads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.numThreads.set(n)
	s.metrics.observeNumThreads(n)
}

// CacheSize returns the system cache budget in megabytes.
// It may reload the config file first if the poll period has elapsed.
func (s *Store) CacheSize() uint64 {
	s.poll()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cacheSize.value
}

// SetCacheSize overrides the system cache budget, in megabytes.
func (s *Store) SetCacheSize(mb uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cacheSize.set(mb)
	s.metrics.observeCacheSize(mb)
}

// Snapshot returns all settings and their override flags as one consistent view.
func (s *Store) Snapshot() Snapshot {
	s.poll()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		NumThreads:           s.numThreads.value,
		NumThreadsOverridden: s.numThreads.overridden,
		CacheSize:            s.cacheSize.value,
		CacheSizeOverridden:  s.cacheSize.overridden,
	}
}

// SetConfigPath points the store at a different config file.
// The next access stats the new file regardless of the poll period, and the
// file is read even if it is older than the previous one.
func (s *Store) SetConfigPath(path string) {
	s.fileMu.Lock()
	s.filePath = path
	s.lastModTime = time.Time{}
	s.fileMu.Unlock()

	s.resetPoll()
}

// ConfigPath returns the config file currently polled.
func (s *Store) ConfigPath() string {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	return s.filePath
}

// SetPollPeriod changes the minimum time between two stats of the config file.
// Zero stats on every access. The next access stats immediately.
func (s *Store) SetPollPeriod(d time.Duration) error {
	if d < 0 {
		return ErrInvalidPollPeriod
	}

	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	s.pollPeriod = d
	s.lastPoll = time.Time{}
	return nil
}

// PollPeriod returns the current poll period.
func (s *Store) PollPeriod() time.Duration {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()
	return s.pollPeriod
}

// resetPoll forces the next access past the poll gate
func (s *Store) resetPoll() {
	s.pollMu.Lock()
	s.lastPoll = time.Time{}
	s.pollMu.Unlock()
}
