package logconf

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lixenwraith/settings"
)

// syncBuffer is a console sink safe for concurrent writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDefaultRules(t *testing.T) {
	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	logger := r.Logger("db")
	logger.Info("hello")
	logger.Debug("hidden")

	assert.Contains(t, console.String(), "hello")
	assert.NotContains(t, console.String(), "hidden")
	assert.Equal(t, []string{ConsoleTarget}, r.Targets())
	assert.NoError(t, r.Err())
}

// TestRulesApplyToExistingLoggers tests that a rule change reaches loggers created before it
func TestRulesApplyToExistingLoggers(t *testing.T) {
	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	settingsLog := r.Logger("settings")
	poolLog := r.Logger("db.pool")
	otherLog := r.Logger("http")

	settingsLog.Debug("before")
	assert.NotContains(t, console.String(), "before")

	r.ApplyLogRules([]settings.LogRule{
		{Target: ConsoleTarget, Rule: "debug = settings"},
		{Target: ConsoleTarget, Rule: "warn = db.*"},
	})
	require.NoError(t, r.Err())

	settingsLog.Debug("after")
	poolLog.Info("pool-info")
	poolLog.Warn("pool-warn")
	otherLog.Error("http-error")

	out := console.String()
	assert.Contains(t, out, "after")
	assert.NotContains(t, out, "pool-info")
	assert.Contains(t, out, "pool-warn")
	assert.NotContains(t, out, "http-error")

	// Empty rule set restores the default
	r.ApplyLogRules(nil)
	otherLog.Info("http-info")
	assert.Contains(t, console.String(), "http-info")
}

func TestNamedChildRoutedByFullName(t *testing.T) {
	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	r.ApplyLogRules([]settings.LogRule{
		{Target: ConsoleTarget, Rule: "debug = settings.reload"},
		{Target: ConsoleTarget, Rule: "info = *"},
	})
	require.NoError(t, r.Err())

	parent := r.Logger("settings")
	child := parent.Named("reload")
	sibling := parent.Named("poll")

	child.Debug("child-debug")
	parent.Debug("parent-debug")
	sibling.Debug("sibling-debug")
	sibling.Info("sibling-info")

	out := console.String()
	assert.Contains(t, out, "child-debug")
	assert.Contains(t, out, "settings.reload")
	assert.NotContains(t, out, "parent-debug")
	assert.NotContains(t, out, "sibling-debug")
	assert.Contains(t, out, "sibling-info")
}

func TestFieldsArePreserved(t *testing.T) {
	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	r.Logger("svc").With(zap.String("request_id", "abc123")).Info("handled")
	assert.Contains(t, console.String(), "abc123")
}

func TestFileTarget(t *testing.T) {
	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	logPath := filepath.Join(t.TempDir(), "app.log")
	r.ApplyLogRules([]settings.LogRule{
		{Target: logPath, Rule: "info = *"},
		{Target: ConsoleTarget, Rule: "error = *"},
	})
	require.NoError(t, r.Err())
	assert.Equal(t, []string{logPath, ConsoleTarget}, r.Targets())

	r.Logger("svc").Info("to-file")
	require.NoError(t, r.Sync())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to-file"`)
	assert.Contains(t, string(data), `"logger":"svc"`)
	assert.NotContains(t, console.String(), "to-file")

	// Dropping the target closes it
	r.ApplyLogRules([]settings.LogRule{{Target: ConsoleTarget, Rule: "info = *"}})
	assert.Equal(t, []string{ConsoleTarget}, r.Targets())

	r.Logger("svc").Info("after-drop")
	data, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after-drop")
	assert.Contains(t, console.String(), "after-drop")
}

func TestMalformedRules(t *testing.T) {
	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	missingDir := filepath.Join(t.TempDir(), "missing", "app.log")
	r.ApplyLogRules([]settings.LogRule{
		{Target: ConsoleTarget, Rule: "loud = *"},
		{Target: "", Rule: "info = *"},
		{Target: missingDir, Rule: "info = *"},
		{Target: ConsoleTarget, Rule: "warn"},
	})

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loud")
	assert.Contains(t, err.Error(), missingDir)
	assert.Equal(t, []string{ConsoleTarget}, r.Targets())

	// A rule without a pattern matches every domain
	logger := r.Logger("anything")
	logger.Info("quiet")
	logger.Warn("loud-enough")
	assert.NotContains(t, console.String(), "quiet")
	assert.Contains(t, console.String(), "loud-enough")

	// Errors are cleared by a clean rule set
	r.ApplyLogRules([]settings.LogRule{{Target: ConsoleTarget, Rule: "info = *"}})
	assert.NoError(t, r.Err())
}

func TestClose(t *testing.T) {
	r := New(&syncBuffer{})
	require.NoError(t, r.Close())
	assert.Empty(t, r.Targets())

	assert.NotPanics(t, func() {
		r.Logger("late").Info("dropped")
	})
}

// TestSettingsReloadDrivesRouting tests the router as the store's log configurator
func TestSettingsReloadDrivesRouting(t *testing.T) {
	const path = "/home/user/.settingsrc"

	console := &syncBuffer{}
	r := New(console)
	defer r.Close()

	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClock()
	store, err := settings.NewBuilder().
		WithFile(path).
		WithFs(fs).
		WithClock(clock).
		WithLogConfigurator(r).
		Build()
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, path, []byte("threads = 2\n[logfile console]\ndebug = settings\n"), 0644))
	assert.Equal(t, 2, store.NumThreads())

	r.Logger("settings").Debug("debug-visible")
	assert.Contains(t, console.String(), "debug-visible")

	// Removing the section falls back to the default rules
	require.NoError(t, afero.WriteFile(fs, path, []byte("threads = 3\n"), 0644))
	later := time.Now().Add(time.Hour)
	require.NoError(t, fs.Chtimes(path, later, later))
	clock.Advance(settings.DefaultPollPeriod)
	assert.Equal(t, 3, store.NumThreads())

	r.Logger("settings").Debug("debug-hidden")
	assert.NotContains(t, console.String(), "debug-hidden")
}
