// File: lixenwraith/settings/builder.go
package settings

import (
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Builder provides a fluent interface for building a Store
type Builder struct {
	appName           string
	file              string
	pollPeriod        time.Duration
	numThreads        int
	cacheSize         uint64
	clock             clockwork.Clock
	fs                afero.Fs
	logger            *zap.Logger
	metrics           *Metrics
	logConf           LogConfigurator
	verifyPermissions bool
	err               error
}

// NewBuilder creates a new store builder with platform thread count,
// DefaultCacheSize, DefaultPollPeriod and the default per-user config path.
func NewBuilder() *Builder {
	return &Builder{
		appName:    DefaultAppName,
		pollPeriod: DefaultPollPeriod,
		numThreads: DetectNumThreads(),
		cacheSize:  DefaultCacheSize,
	}
}

// WithAppName sets the name the default config path is derived from (~/.<name>rc)
func (b *Builder) WithAppName(name string) *Builder {
	b.appName = name
	return b
}

// WithFile sets the config file path, overriding the default per-user location
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithPollPeriod sets the minimum time between two stats of the config file
func (b *Builder) WithPollPeriod(d time.Duration) *Builder {
	if d < 0 {
		b.err = fmt.Errorf("%w: %v", ErrInvalidPollPeriod, d)
		return b
	}
	b.pollPeriod = d
	return b
}

// WithDefaults sets the built-in values used until something overrides them
func (b *Builder) WithDefaults(numThreads int, cacheSizeMB uint64) *Builder {
	b.numThreads = numThreads
	b.cacheSize = cacheSizeMB
	return b
}

// WithClock sets the clock used by the poll gate
func (b *Builder) WithClock(clock clockwork.Clock) *Builder {
	b.clock = clock
	return b
}

// WithFs sets the filesystem the config file is read from
func (b *Builder) WithFs(fs afero.Fs) *Builder {
	b.fs = fs
	return b
}

// WithLogger sets the logger for reload events
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetrics attaches Prometheus metrics
func (b *Builder) WithMetrics(m *Metrics) *Builder {
	b.metrics = m
	return b
}

// WithLogConfigurator sets the collaborator that receives [logfile] rules
func (b *Builder) WithLogConfigurator(lc LogConfigurator) *Builder {
	b.logConf = lc
	return b
}

// WithPermissionCheck refuses to reload a config file that is group or world writable
func (b *Builder) WithPermissionCheck(enabled bool) *Builder {
	b.verifyPermissions = enabled
	return b
}

// Build creates the Store. The config file is not touched until the first access.
func (b *Builder) Build() (*Store, error) {
	if b.err != nil {
		return nil, b.err
	}

	file := b.file
	if file == "" {
		if b.appName == "" {
			return nil, ErrEmptyAppName
		}
		file = DefaultConfigPath(b.appName)
	}

	s := &Store{
		numThreads:        setting[int]{value: b.numThreads},
		cacheSize:         setting[uint64]{value: b.cacheSize},
		pollPeriod:        b.pollPeriod,
		filePath:          file,
		clock:             b.clock,
		fs:                b.fs,
		logger:            b.logger,
		metrics:           b.metrics,
		logConf:           b.logConf,
		verifyPermissions: b.verifyPermissions,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.metrics.observeNumThreads(b.numThreads)
	s.metrics.observeCacheSize(b.cacheSize)

	return s, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Store {
	s, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("settings build failed: %v", err))
	}
	return s
}
