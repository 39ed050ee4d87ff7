package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ligustah/fetchd/pkg/fetch"
)

// Namespace prefixes every metric name.
const Namespace = "fetchd"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors for downloads. It implements
// fetch.Observer.
type Metrics struct {
	downloadsTotal  *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	durationSeconds *prometheus.HistogramVec
	sizeBytes       prometheus.Histogram
	inProgress      prometheus.Gauge
}

var _ fetch.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer. It panics if a collector is already
// registered.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		downloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "downloads_total",
				Help:      "Finished downloads by outcome and error kind.",
			},
			[]string{"outcome", "kind"},
		),
		bytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes accepted by storage sinks, including failed downloads.",
		}),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "download_duration_seconds",
				Help:      "Download duration from request to finalize or failure.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 4, 9), // 50ms .. ~55m
			},
			[]string{"outcome"},
		),
		sizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "download_size_bytes",
			Help:      "Size of successfully stored objects.",
			Buckets:   prometheus.ExponentialBuckets(1024, 10, 8), // 1KiB .. ~100GB
		}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "downloads_in_progress",
			Help:      "Downloads currently running.",
		}),
	}

	reg.MustRegister(
		m.downloadsTotal,
		m.bytesTotal,
		m.durationSeconds,
		m.sizeBytes,
		m.inProgress,
	)
	return m
}

// Begin marks a download as started. The returned function records its
// outcome and must be called exactly once.
func (m *Metrics) Begin() func(res *fetch.Result, err error) {
	start := time.Now()
	m.inProgress.Inc()

	return func(res *fetch.Result, err error) {
		m.inProgress.Dec()
		elapsed := time.Since(start).Seconds()

		if err != nil {
			m.downloadsTotal.WithLabelValues(OutcomeFailure, fetch.KindOf(err).String()).Inc()
			m.durationSeconds.WithLabelValues(OutcomeFailure).Observe(elapsed)
			return
		}
		m.downloadsTotal.WithLabelValues(OutcomeSuccess, "").Inc()
		m.durationSeconds.WithLabelValues(OutcomeSuccess).Observe(elapsed)
		if res != nil {
			m.sizeBytes.Observe(float64(res.Size))
		}
	}
}

// Resolved implements fetch.Observer.
func (m *Metrics) Resolved(fetch.Target, int64) {}

// Written implements fetch.Observer.
func (m *Metrics) Written(n int) {
	m.bytesTotal.Add(float64(n))
}
