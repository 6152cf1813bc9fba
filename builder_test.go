// FILE: lixenwraith/settings/builder_test.go
package settings

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuilder tests the builder pattern
func TestBuilder(t *testing.T) {
	t.Run("BasicBuilder", func(t *testing.T) {
		store, err := NewBuilder().
			WithFile("/etc/app.conf").
			WithFs(afero.NewMemMapFs()).
			Build()

		require.NoError(t, err)
		assert.Equal(t, DetectNumThreads(), store.NumThreads())
		assert.Equal(t, DefaultCacheSize, store.CacheSize())
		assert.Equal(t, DefaultPollPeriod, store.PollPeriod())
		assert.Equal(t, "/etc/app.conf", store.ConfigPath())
	})

	t.Run("BuilderWithAllOptions", func(t *testing.T) {
		logConf := &recordingLogConf{}
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/etc/app.conf", []byte("[logfile console]\ndebug = *\n"), 0644))

		store, err := NewBuilder().
			WithFile("/etc/app.conf").
			WithFs(fs).
			WithPollPeriod(time.Minute).
			WithDefaults(3, 300).
			WithLogConfigurator(logConf).
			WithPermissionCheck(true).
			Build()

		require.NoError(t, err)
		assert.Equal(t, 3, store.NumThreads())
		assert.Equal(t, uint64(300), store.CacheSize())
		assert.Equal(t, time.Minute, store.PollPeriod())
		assert.Equal(t, 1, logConf.count())
	})

	t.Run("DefaultPathFromAppName", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv("BATCHD_CONFIG", "")

		store, err := NewBuilder().WithAppName("batchd").Build()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".batchdrc"), store.ConfigPath())
	})

	t.Run("EmptyAppName", func(t *testing.T) {
		_, err := NewBuilder().WithAppName("").Build()
		assert.ErrorIs(t, err, ErrEmptyAppName)

		// An explicit file does not need a name
		_, err = NewBuilder().WithAppName("").WithFile("/etc/app.conf").Build()
		assert.NoError(t, err)
	})

	t.Run("NegativePollPeriod", func(t *testing.T) {
		_, err := NewBuilder().WithPollPeriod(-time.Second).Build()
		assert.ErrorIs(t, err, ErrInvalidPollPeriod)

		assert.Panics(t, func() {
			NewBuilder().WithPollPeriod(-time.Second).MustBuild()
		})
	})

	t.Run("BuildDoesNotTouchFile", func(t *testing.T) {
		fs := &countingFs{Fs: afero.NewMemMapFs()}
		_, err := NewBuilder().WithFile("/etc/app.conf").WithFs(fs).Build()
		require.NoError(t, err)
		assert.Zero(t, fs.stats.Load())
		assert.Zero(t, fs.opens.Load())
	})
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.poll()
		m.stat()
		m.reload(reloadApplied)
		m.skipped(3)
		m.observeNumThreads(4)
		m.observeCacheSize(512)
	})
}

func TestGlobal(t *testing.T) {
	t.Setenv(ConfigEnvVar(DefaultAppName), filepath.Join(t.TempDir(), "missing-rc"))

	first := Global()
	require.NotNil(t, first)
	assert.Same(t, first, Global())

	assert.Equal(t, first.NumThreads(), DefaultNumThreads())
	assert.Equal(t, first.CacheSize(), SystemCacheSize())
	assert.Positive(t, DefaultNumThreads())
}
