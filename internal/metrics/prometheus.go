package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the pipeline

var (
	// Provider call metrics
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbafp_provider_calls_total",
			Help: "Total number of stats provider calls",
		},
		[]string{"endpoint", "status"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nbafp_provider_call_duration_seconds",
			Help:    "Duration of provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Ingestion metrics
	GamesIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nbafp_games_ingested_total",
			Help: "Total number of games fully ingested",
		},
	)

	GamesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbafp_games_skipped_total",
			Help: "Total number of games skipped during ingestion",
		},
		[]string{"reason"},
	)

	BoxscoreCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nbafp_boxscore_cache_hits_total",
			Help: "Total number of boxscore cache hits",
		},
	)

	BoxscoreCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nbafp_boxscore_cache_misses_total",
			Help: "Total number of boxscore cache misses",
		},
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nbafp_ingest_duration_seconds",
			Help:    "Duration of a full-date ingestion in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// Feature engine metrics
	FeatureBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nbafp_feature_build_duration_seconds",
			Help:    "Duration of feature table builds in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
	)

	FeatureRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbafp_feature_rows",
			Help: "Number of rows in the last built feature table",
		},
	)

	// Dataset metrics
	DatasetTrainRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbafp_dataset_train_rows",
			Help: "Number of rows in the last train split",
		},
	)

	DatasetTestRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbafp_dataset_test_rows",
			Help: "Number of rows in the last test split",
		},
	)

	DatasetDroppedRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbafp_dataset_dropped_rows",
			Help: "Number of rows dropped while cleaning the last dataset",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbafp_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Pipeline metrics
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nbafp_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbafp_last_successful_run_timestamp",
			Help: "Timestamp of the last successful pipeline run",
		},
	)

	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nbafp_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordProviderCall records a provider call metric
func RecordProviderCall(endpoint, status string, duration float64) {
	ProviderCallsTotal.WithLabelValues(endpoint, status).Inc()
	ProviderCallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordGameIngested records a fully ingested game
func RecordGameIngested() {
	GamesIngestedTotal.Inc()
}

// RecordGameSkipped records a skipped game with its reason
func RecordGameSkipped(reason string) {
	GamesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordCacheHit records a boxscore cache hit
func RecordCacheHit() {
	BoxscoreCacheHitsTotal.Inc()
}

// RecordCacheMiss records a boxscore cache miss
func RecordCacheMiss() {
	BoxscoreCacheMissesTotal.Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordPipelineRun records a pipeline run outcome
func RecordPipelineRun(status string) {
	PipelineRunsTotal.WithLabelValues(status).Inc()

	if status == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordDatasetCounts updates dataset split gauges
func RecordDatasetCounts(train, test, dropped int) {
	DatasetTrainRows.Set(float64(train))
	DatasetTestRows.Set(float64(test))
	DatasetDroppedRows.Set(float64(dropped))
}
