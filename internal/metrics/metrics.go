package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tutorialcms/internal/lifecycle"
)

const namespace = "tutorialcms"

// Collector records executor runs. It implements lifecycle.RunObserver.
type Collector struct {
	runs        prometheus.Counter
	actions     *prometheus.CounterVec
	runDuration prometheus.Histogram
	lastRun     prometheus.Gauge
}

// NewCollector registers the lifecycle metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "runs_total",
			Help:      "Total number of executeDue invocations",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "actions_total",
			Help:      "Scheduled actions seen by the executor, by outcome",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "run_duration_seconds",
			Help:      "Duration of executeDue invocations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms ~ 16s
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished executeDue invocation",
		}),
	}
	reg.MustRegister(c.runs, c.actions, c.runDuration, c.lastRun)
	return c
}

// ObserveRun folds one run summary into the metrics.
func (c *Collector) ObserveRun(summary lifecycle.RunSummary, elapsed time.Duration) {
	c.runs.Inc()
	c.actions.WithLabelValues("executed").Add(float64(summary.Executed))
	c.actions.WithLabelValues("skipped").Add(float64(summary.Skipped))
	c.actions.WithLabelValues("failed").Add(float64(len(summary.Failures)))
	c.runDuration.Observe(elapsed.Seconds())
	c.lastRun.SetToCurrentTime()
}
