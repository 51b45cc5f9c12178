package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Run metrics
var (
	// RunsTotal tracks connector runs by status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_runs_total",
			Help: "Total number of connector runs by status",
		},
		[]string{"connector", "status"},
	)

	// RunDuration tracks connector run duration
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connector_run_duration_seconds",
			Help:    "Connector run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"connector"},
	)

	// LastSuccessTimestamp records when a run last completed successfully
	LastSuccessTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "connector_last_success_timestamp_seconds",
			Help: "Unix time of the last successful connector run",
		},
		[]string{"connector"},
	)
)

// Source metrics
var (
	// PagesFetched tracks findings pages retrieved from the source API
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_pages_fetched_total",
			Help: "Total number of findings pages fetched",
		},
		[]string{"connector"},
	)

	// FindingsProcessed tracks findings mapped into import records
	FindingsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_findings_processed_total",
			Help: "Total number of findings mapped into import records",
		},
		[]string{"connector"},
	)

	// MitigationLookups tracks mitigation resolutions by cache result
	MitigationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_mitigation_lookups_total",
			Help: "Total number of mitigation lookups by cache result (hit, miss)",
		},
		[]string{"connector", "result"},
	)

	// UnscoredFindings tracks findings whose severity label had no score
	UnscoredFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_unscored_findings_total",
			Help: "Total number of findings with an unrecognized severity label",
		},
		[]string{"connector"},
	)
)

// Ingestion metrics
var (
	// ArtifactsEmitted tracks import files written
	ArtifactsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_artifacts_emitted_total",
			Help: "Total number of import files written",
		},
		[]string{"connector"},
	)

	// UploadsTotal tracks import file uploads by status
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_uploads_total",
			Help: "Total number of import file uploads by status",
		},
		[]string{"connector", "status"},
	)

	// KickoffsTotal tracks ingestion kickoffs by status
	KickoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connector_kickoffs_total",
			Help: "Total number of ingestion kickoffs by status",
		},
		[]string{"connector", "status"},
	)
)

// Push sends the default registry to a Prometheus Pushgateway under job.
// An empty url disables pushing.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
