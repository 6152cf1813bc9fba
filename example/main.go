// FILE: example/main.go
// Demo of a worker pool that resizes itself from a live settings file.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/settings"
	"github.com/lixenwraith/settings/logconf"
)

func main() {
	router := logconf.New(nil)
	logger := router.Logger("example")

	err := run(router, logger)
	if err != nil {
		logger.Error("example failed", zap.Error(err))
	}
	_ = router.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run holds every step so deferred cleanup happens before main exits
func run(router *logconf.Router, logger *zap.Logger) error {
	dir, err := os.MkdirTemp("", "settings-example-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, ".examplerc")

	// =========================================================================
	// PART 1: Write an initial settings file
	// =========================================================================
	fs := afero.NewOsFs()
	if err := settings.WriteDirective(fs, path, settings.KeyNumThreads, "2"); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := settings.WriteDirective(fs, path, settings.KeyCacheSize, "256MiB"); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	logger.Info("settings file created", zap.String("path", path))

	// =========================================================================
	// PART 2: Build a store with a short poll period
	// =========================================================================
	store, err := settings.NewBuilder().
		WithFile(path).
		WithPollPeriod(200 * time.Millisecond).
		WithLogger(router.Logger("settings")).
		WithLogConfigurator(router).
		Build()
	if err != nil {
		return fmt.Errorf("build settings store: %w", err)
	}
	printState(store, "Initial state")

	// =========================================================================
	// PART 3: Run batches, editing the file between them
	// =========================================================================
	ctx := context.Background()
	for batch, threads := range []string{"4", "8"} {
		processed, workers, err := runBatch(ctx, store, 64)
		if err != nil {
			return fmt.Errorf("batch %d: %w", batch, err)
		}
		logger.Info("batch done",
			zap.Int("batch", batch),
			zap.Int("workers", workers),
			zap.Int64("items", processed))

		if err := settings.WriteDirective(fs, path, settings.KeyNumThreads, threads); err != nil {
			return fmt.Errorf("update settings: %w", err)
		}
		// Wait out the poll period so the next access sees the edit
		time.Sleep(300 * time.Millisecond)
	}

	printState(store, "Final state")
	return nil
}

// runBatch processes items with as many workers as the store currently allows
func runBatch(ctx context.Context, store settings.Provider, items int) (int64, int, error) {
	workers := store.NumThreads()

	var processed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < items; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			processed.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return processed.Load(), workers, err
}

func printState(store *settings.Store, title string) {
	snap := store.Snapshot()
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("             %s\n", title)
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("     Worker threads:   %d (overridden: %v)\n", snap.NumThreads, snap.NumThreadsOverridden)
	fmt.Printf("     Cache size (MB):  %d (overridden: %v)\n", snap.CacheSize, snap.CacheSizeOverridden)
	fmt.Println("   --------------------------------------------------")
}
