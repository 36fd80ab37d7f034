package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "visascope",
			Subsystem: "pipeline",
			Name:      "jobs_started_total",
			Help:      "Total number of evaluation jobs started.",
		},
	)

	jobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "visascope",
			Subsystem: "pipeline",
			Name:      "jobs_finished_total",
			Help:      "Total number of evaluation jobs reaching a terminal event, by outcome.",
		},
		[]string{"outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "visascope",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	activeJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "visascope",
			Subsystem: "pipeline",
			Name:      "active_jobs",
			Help:      "Number of jobs currently registered.",
		},
	)

	streamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "visascope",
			Subsystem: "pipeline",
			Name:      "stream_subscribers",
			Help:      "Number of open progress-stream connections.",
		},
	)
)

// JobStarted counts a new pipeline run.
func JobStarted() { jobsStartedTotal.Inc() }

// JobFinished counts a terminal event; outcome is "ok", "invalid_documents"
// or "error".
func JobFinished(outcome string) { jobsFinishedTotal.WithLabelValues(outcome).Inc() }

// ObserveStage records how long one stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetActiveJobs mirrors the registry size.
func SetActiveJobs(n int) { activeJobs.Set(float64(n)) }

// SubscriberConnected / SubscriberDisconnected track open push channels.
func SubscriberConnected()    { streamSubscribers.Inc() }
func SubscriberDisconnected() { streamSubscribers.Dec() }
