package workflows

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tendant/simple-content-mediafilter/pkg/pipeline"
)

// Metrics counts runs and per-asset outcomes. A nil *Metrics records nothing.
type Metrics struct {
	runs     *prometheus.CounterVec
	assets   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Asset outcome labels
const (
	AssetEligible = "eligible"
	AssetFiltered = "filtered"
	AssetFailed   = "failed"
)

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediafilter",
			Name:      "runs_total",
			Help:      "Task runs by task and aggregate status.",
		}, []string{"task", "status"}),
		assets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediafilter",
			Name:      "assets_total",
			Help:      "Source assets by task and outcome.",
		}, []string{"task", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediafilter",
			Name:      "run_duration_seconds",
			Help:      "Duration of task runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
	}
	reg.MustRegister(m.runs, m.assets, m.duration)
	return m
}

func (m *Metrics) observeRun(task string, status pipeline.Status, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(task, string(status)).Inc()
	m.duration.WithLabelValues(task).Observe(elapsed.Seconds())
}

func (m *Metrics) observeAsset(task, outcome string) {
	if m == nil {
		return
	}
	m.assets.WithLabelValues(task, outcome).Inc()
}
