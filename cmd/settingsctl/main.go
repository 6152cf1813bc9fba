// Command settingsctl inspects and edits a settings file, and can follow it
// the way a long running process would.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/settings"
	"github.com/lixenwraith/settings/logconf"
)

func main() {
	app := kingpin.New("settingsctl", "Inspect, edit and follow a runtime settings file")
	configFile := app.Flag("config", "Path to the settings file (default ~/.<app>rc)").Short('c').String()
	appName := app.Flag("app", "Application name used to derive the default path").Default(settings.DefaultAppName).String()

	showCmd := app.Command("show", "Print the current settings as YAML")

	watchCmd := app.Command("watch", "Poll the settings file and log every change")
	interval := watchCmd.Flag("interval", "How often to read the settings").Default("1s").Duration()
	pollPeriod := watchCmd.Flag("poll-period", "Minimum time between two stats of the file").Default(settings.DefaultPollPeriod.String()).Duration()
	metricsAddr := watchCmd.Flag("metrics-addr", "Serve Prometheus metrics on this address").String()

	setCmd := app.Command("set", "Write a directive into the settings file")
	setKey := setCmd.Arg("key", "default_num_threads or system_cache_size (or an alias)").Required().String()
	setValue := setCmd.Arg("value", "New value; cache sizes accept units like 2GiB").Required().String()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Warn("failed to apply CPU quota to GOMAXPROCS", zap.Error(err))
	}

	path := *configFile
	if path == "" {
		path = settings.DefaultConfigPath(*appName)
	}

	switch command {
	case showCmd.FullCommand():
		store, err := settings.NewBuilder().
			WithFile(path).
			WithDefaults(settings.DetectNumThreads(), settings.DetectCacheSize()).
			WithLogger(logger).
			Build()
		if err != nil {
			logger.Fatal("failed to build settings store", zap.Error(err))
		}
		if err := runShow(store, os.Stdout); err != nil {
			logger.Fatal("show failed", zap.Error(err))
		}

	case watchCmd.FullCommand():
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runWatch(ctx, path, *interval, *pollPeriod, *metricsAddr, logger); err != nil {
			logger.Fatal("watch failed", zap.Error(err))
		}

	case setCmd.FullCommand():
		if err := settings.WriteDirective(afero.NewOsFs(), path, *setKey, *setValue); err != nil {
			logger.Fatal("failed to write directive", zap.String("path", path), zap.Error(err))
		}
		logger.Info("directive written", zap.String("path", path), zap.String("key", *setKey), zap.String("value", *setValue))
	}
}

// newLogger creates a production-ready structured logger configured for JSON output.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// runShow prints one snapshot
func runShow(store *settings.Store, w io.Writer) error {
	snap := store.Snapshot()

	out := struct {
		ConfigPath string            `yaml:"config_path"`
		PollPeriod string            `yaml:"poll_period"`
		Settings   settings.Snapshot `yaml:"settings"`
	}{
		ConfigPath: store.ConfigPath(),
		PollPeriod: store.PollPeriod().String(),
		Settings:   snap,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

// runWatch reads the settings every interval until ctx is done. The store's
// own log output is routed by the file's [logfile] rules.
func runWatch(ctx context.Context, path string, interval, pollPeriod time.Duration, metricsAddr string, logger *zap.Logger) error {
	router := logconf.New(nil)
	defer router.Close()

	registry := prometheus.NewRegistry()
	store, err := settings.NewBuilder().
		WithFile(path).
		WithPollPeriod(pollPeriod).
		WithDefaults(settings.DetectNumThreads(), settings.DetectCacheSize()).
		WithLogger(router.Logger("settings")).
		WithLogConfigurator(router).
		WithMetrics(settings.NewMetrics(registry)).
		WithPermissionCheck(true).
		Build()
	if err != nil {
		return fmt.Errorf("build settings store: %w", err)
	}

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info("watching settings", zap.String("path", path), zap.Duration("poll_period", pollPeriod))
	return watchLoop(ctx, store, store.Snapshot(), interval, func(prev, cur settings.Snapshot) {
		logger.Info("settings changed",
			zap.Int("num_threads", cur.NumThreads),
			zap.Int("previous_num_threads", prev.NumThreads),
			zap.Uint64("cache_size_mb", cur.CacheSize),
			zap.Uint64("previous_cache_size_mb", prev.CacheSize))
	})
}

// watchLoop calls onChange whenever a snapshot differs from the previous one,
// starting from prev
func watchLoop(ctx context.Context, store *settings.Store, prev settings.Snapshot, interval time.Duration, onChange func(prev, cur settings.Snapshot)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := store.Snapshot()
			if cur != prev {
				onChange(prev, cur)
				prev = cur
			}
		}
	}
}
