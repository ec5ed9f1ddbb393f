package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mlt/internal/cv"
)

// Registry holds the split and run metrics on a dedicated prometheus
// registry. A nil *Registry is valid and records nothing.
type Registry struct {
	registry *prometheus.Registry

	Splits        *prometheus.CounterVec
	TrainRows     *prometheus.HistogramVec
	TestRows      *prometheus.HistogramVec
	PurgedRows    *prometheus.CounterVec
	EmbargoedRows *prometheus.CounterVec
	FoldDuration  *prometheus.HistogramVec
	Runs          *prometheus.CounterVec
	ActiveRuns    prometheus.Gauge
}

// NewRegistry creates a registry with every mlt metric registered
func NewRegistry() *Registry {
	rowBuckets := prometheus.ExponentialBuckets(10, 4, 8)

	r := &Registry{
		registry: prometheus.NewRegistry(),

		Splits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlt_splits_total",
				Help: "Total number of folds generated by splitter",
			},
			[]string{"splitter"},
		),

		TrainRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mlt_split_train_rows",
				Help:    "Training rows per fold after purge and embargo",
				Buckets: rowBuckets,
			},
			[]string{"splitter"},
		),

		TestRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mlt_split_test_rows",
				Help:    "Test rows per fold",
				Buckets: rowBuckets,
			},
			[]string{"splitter"},
		),

		PurgedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlt_purged_rows_total",
				Help: "Training rows removed because their evaluation overlapped a test fold",
			},
			[]string{"splitter"},
		),

		EmbargoedRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlt_embargoed_rows_total",
				Help: "Training rows removed by the embargo horizon",
			},
			[]string{"splitter"},
		),

		FoldDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mlt_fold_duration_seconds",
				Help:    "Wall time spent processing one outer fold",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"splitter"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mlt_runs_total",
				Help: "Total number of experiment runs by final status",
			},
			[]string{"status"},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "mlt_active_runs",
				Help: "Number of experiment runs in progress",
			},
		),
	}

	r.registry.MustRegister(
		r.Splits,
		r.TrainRows,
		r.TestRows,
		r.PurgedRows,
		r.EmbargoedRows,
		r.FoldDuration,
		r.Runs,
		r.ActiveRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler serves the registry in the prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSplit records one generated fold
func (r *Registry) ObserveSplit(splitter string, s cv.Split) {
	if r == nil {
		return
	}
	r.Splits.WithLabelValues(splitter).Inc()
	r.TrainRows.WithLabelValues(splitter).Observe(float64(len(s.Train)))
	r.TestRows.WithLabelValues(splitter).Observe(float64(len(s.Test)))
	r.PurgedRows.WithLabelValues(splitter).Add(float64(s.Purged))
	r.EmbargoedRows.WithLabelValues(splitter).Add(float64(s.Embargoed))
}

// ObserveFoldDuration records the processing time of one fold
func (r *Registry) ObserveFoldDuration(splitter string, d time.Duration) {
	if r == nil {
		return
	}
	r.FoldDuration.WithLabelValues(splitter).Observe(d.Seconds())
}

// StartRun marks a run as in progress
func (r *Registry) StartRun() {
	if r == nil {
		return
	}
	r.ActiveRuns.Inc()
}

// ObserveRun records a finished run
func (r *Registry) ObserveRun(status string) {
	if r == nil {
		return
	}
	r.ActiveRuns.Dec()
	r.Runs.WithLabelValues(status).Inc()
}

// FoldTimer tracks execution time for one fold
type FoldTimer struct {
	metrics  *Registry
	splitter string
	fold     int
	start    time.Time
}

// StartFoldTimer begins timing a fold
func (r *Registry) StartFoldTimer(splitter string, fold int) *FoldTimer {
	return &FoldTimer{
		metrics:  r,
		splitter: splitter,
		fold:     fold,
		start:    time.Now(),
	}
}

// Stop records the elapsed time and returns it
func (ft *FoldTimer) Stop() time.Duration {
	duration := time.Since(ft.start)
	ft.metrics.ObserveFoldDuration(ft.splitter, duration)

	log.Debug().
		Str("splitter", ft.splitter).
		Int("fold", ft.fold).
		Dur("duration", duration).
		Msg("Fold completed")

	return duration
}
