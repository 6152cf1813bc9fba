package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/settings"
)

const testPath = "/home/user/.settingsrc"

func newTestStore(t *testing.T, content string, pollPeriod time.Duration) *settings.Store {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(content), 0644))

	store, err := settings.NewBuilder().
		WithFile(testPath).
		WithFs(fs).
		WithPollPeriod(pollPeriod).
		WithDefaults(4, 512).
		Build()
	require.NoError(t, err)
	return store
}

func TestRunShow(t *testing.T) {
	store := newTestStore(t, "cache_size = \"2GiB\"\n", settings.DefaultPollPeriod)

	var buf bytes.Buffer
	require.NoError(t, runShow(store, &buf))

	var out struct {
		ConfigPath string            `yaml:"config_path"`
		PollPeriod string            `yaml:"poll_period"`
		Settings   settings.Snapshot `yaml:"settings"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, testPath, out.ConfigPath)
	assert.Equal(t, "5s", out.PollPeriod)
	assert.Equal(t, settings.Snapshot{
		NumThreads:          4,
		CacheSize:           2048,
		CacheSizeOverridden: true,
	}, out.Settings)
	assert.Contains(t, buf.String(), "system_cache_size: 2048")
}

func TestWatchLoop(t *testing.T) {
	store := newTestStore(t, "threads = 2\n", 0)

	changes := make(chan [2]settings.Snapshot, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := store.Snapshot()

	var g errgroup.Group
	g.Go(func() error {
		return watchLoop(ctx, store, initial, 10*time.Millisecond, func(prev, cur settings.Snapshot) {
			changes <- [2]settings.Snapshot{prev, cur}
		})
	})

	store.SetCacheSize(99)

	select {
	case change := <-changes:
		assert.Equal(t, uint64(512), change[0].CacheSize)
		assert.Equal(t, uint64(99), change[1].CacheSize)
		assert.Equal(t, 2, change[1].NumThreads)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	cancel()
	require.NoError(t, g.Wait())
}
