package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sheetcheck/internal/validation"
)

var (
	RunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sheetcheck_runs_started_total",
		Help: "The total number of validation runs picked up by the worker",
	})
	RunsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheetcheck_runs_finished_total",
		Help: "The total number of finished validation runs by terminal status",
	}, []string{"status"})
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheetcheck_run_duration_seconds",
		Help:    "Wall-clock duration of validation runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	SheetsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheetcheck_sheets_processed_total",
		Help: "The total number of processed sheets by final state",
	}, []string{"state"})
	SheetDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sheetcheck_sheet_duration_seconds",
		Help:    "Wall-clock duration of individual sheet validation",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	RowsValidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sheetcheck_rows_validated_total",
		Help: "The total number of validated rows",
	})
	RowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheetcheck_errors_total",
		Help: "The total number of validation errors by handling class",
	}, []string{"class"})
	CachePrefetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sheetcheck_cache_prefetch_total",
		Help: "The total number of reference cache prefetches by mode",
	}, []string{"mode"})
)

// RunObserver feeds processing milestones into the collectors. It implements
// validation.Observer; the collectors themselves are concurrency-safe.
type RunObserver struct{}

func NewRunObserver() *RunObserver {
	return &RunObserver{}
}

func (RunObserver) SheetDone(result *validation.SheetResult, took time.Duration) {
	SheetsProcessed.WithLabelValues(string(result.State)).Inc()
	SheetDuration.Observe(took.Seconds())
	RowsValidated.Add(float64(result.TotalRows))
	for _, e := range result.Errors {
		RowErrors.WithLabelValues(e.Code.Class().String()).Inc()
	}
}

func (RunObserver) PrefetchDone(entityType string, materialized bool, count int) {
	mode := "direct"
	if materialized {
		mode = "materialized"
	}
	CachePrefetches.WithLabelValues(mode).Inc()
}
