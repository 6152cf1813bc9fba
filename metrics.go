// FILE: lixenwraith/settings/metrics.go
package settings

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments of a Store.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PollsTotal             prometheus.Counter
	StatsTotal             prometheus.Counter
	ReloadsTotal           *prometheus.CounterVec
	DirectivesSkippedTotal prometheus.Counter
	NumThreads             prometheus.Gauge
	CacheSizeMegabytes     prometheus.Gauge
}

// NewMetrics creates and registers the store metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settings_polls_total",
			Help: "Number of settings accesses that passed the poll gate",
		}),
		StatsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settings_stats_total",
			Help: "Number of config file stats",
		}),
		ReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "settings_reloads_total",
				Help: "Config file reloads by result",
			},
			[]string{"result"},
		),
		DirectivesSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settings_directives_skipped_total",
			Help: "Malformed or invalid config lines skipped during reload",
		}),
		NumThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settings_num_threads",
			Help: "Current default number of worker threads",
		}),
		CacheSizeMegabytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settings_cache_size_megabytes",
			Help: "Current system cache budget in megabytes",
		}),
	}

	registry.MustRegister(
		m.PollsTotal,
		m.StatsTotal,
		m.ReloadsTotal,
		m.DirectivesSkippedTotal,
		m.NumThreads,
		m.CacheSizeMegabytes,
	)

	return m
}

func (m *Metrics) poll() {
	if m != nil {
		m.PollsTotal.Inc()
	}
}

func (m *Metrics) stat() {
	if m != nil {
		m.StatsTotal.Inc()
	}
}

func (m *Metrics) reload(result string) {
	if m != nil {
		m.ReloadsTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) skipped(n int) {
	if m != nil && n > 0 {
		m.DirectivesSkippedTotal.Add(float64(n))
	}
}

func (m *Metrics) observeNumThreads(n int) {
	if m != nil {
		m.NumThreads.Set(float64(n))
	}
}

func (m *Metrics) observeCacheSize(mb uint64) {
	if m != nil {
		m.CacheSizeMegabytes.Set(float64(mb))
	}
}
