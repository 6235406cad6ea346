// Package metrics holds the Prometheus collectors for analysis, batches and
// the database connection pool.
package metrics

import (
	"database/sql"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	Analyses         *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	UnlistedTerms    prometheus.Counter

	BatchesProcessed *prometheus.CounterVec
	BatchSentences   prometheus.Counter
	BatchDuration    prometheus.Histogram
	QueueWait        prometheus.Histogram
	BatchesByStatus  *prometheus.GaugeVec

	DBOpenConnections prometheus.Gauge
	DBInUse           prometheus.Gauge
	DBIdle            prometheus.Gauge
	DBWaitCount       prometheus.Gauge
	DBWaitDuration    prometheus.Gauge
}

// New registers the collectors under namespace with reg. A nil reg uses the
// default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Sentences analyzed, by assigned label.",
		}, []string{"label"}),
		AnalysisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time to analyze a single request.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
		UnlistedTerms: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlisted_terms_total",
			Help:      "Tokens that matched no lexicon entry.",
		}),
		BatchesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Batches finished by the worker, by outcome.",
		}, []string{"status"}),
		BatchSentences: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_sentences_total",
			Help:      "Sentences analyzed as part of batches.",
		}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Time to process one batch task.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "queue_wait_seconds",
			Help:      "Time between enqueue and processing start.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		BatchesByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batches",
			Help:      "Stored batches, by status.",
		}, []string{"status"}),
		DBOpenConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "open_connections",
			Help:      "Established connections, in use and idle.",
		}),
		DBInUse: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "in_use_connections",
			Help:      "Connections currently in use.",
		}),
		DBIdle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "idle_connections",
			Help:      "Idle connections.",
		}),
		DBWaitCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "wait_count",
			Help:      "Total connections waited for.",
		}),
		DBWaitDuration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "wait_duration_seconds",
			Help:      "Total time blocked waiting for a connection.",
		}),
	}
}

// CountAnalysis records one analyzed sentence.
func (m *Metrics) CountAnalysis(label string, unlisted int) {
	if m == nil {
		return
	}
	m.Analyses.WithLabelValues(label).Inc()
	m.UnlistedTerms.Add(float64(unlisted))
}

// ObserveAnalysis records one analyzed sentence and how long it took.
func (m *Metrics) ObserveAnalysis(label string, unlisted int, took time.Duration) {
	if m == nil {
		return
	}
	m.CountAnalysis(label, unlisted)
	m.AnalysisDuration.Observe(took.Seconds())
}

// ObserveBatch records a finished batch task.
func (m *Metrics) ObserveBatch(status string, sentences int, took time.Duration) {
	if m == nil {
		return
	}
	m.BatchesProcessed.WithLabelValues(status).Inc()
	m.BatchSentences.Add(float64(sentences))
	m.BatchDuration.Observe(took.Seconds())
}

// ObserveQueueWait records how long a task waited in the queue.
func (m *Metrics) ObserveQueueWait(d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.QueueWait.Observe(d.Seconds())
}

// UpdateDBStats copies connection pool statistics into the gauges.
func (m *Metrics) UpdateDBStats(db *sql.DB) {
	if m == nil || db == nil {
		return
	}
	s := db.Stats()
	m.DBOpenConnections.Set(float64(s.OpenConnections))
	m.DBInUse.Set(float64(s.InUse))
	m.DBIdle.Set(float64(s.Idle))
	m.DBWaitCount.Set(float64(s.WaitCount))
	m.DBWaitDuration.Set(s.WaitDuration.Seconds())
}

// SetBatchCounts replaces the per-status batch gauges.
func (m *Metrics) SetBatchCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.BatchesByStatus.Reset()
	for status, n := range counts {
		m.BatchesByStatus.WithLabelValues(status).Set(float64(n))
	}
}
