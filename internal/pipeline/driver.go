// Package pipeline drives one connector run: it pages through Armis
// findings, resolves mitigations, maps every finding into import records,
// emits one document per page and finally kicks off ingestion.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/openctemio/connector/internal/armis"
	"github.com/openctemio/connector/internal/ingest"
	"github.com/openctemio/connector/internal/kdi"
	"github.com/openctemio/connector/internal/mapper"
	"github.com/openctemio/connector/internal/metrics"
	"github.com/openctemio/connector/pkg/logger"
)

const tracerName = "github.com/openctemio/connector/internal/pipeline"

// Source is the findings API.
type Source interface {
	MitigationSource
	FetchFindings(ctx context.Context, filter armis.Filter, page int) (*armis.FindingsPage, error)
}

// Emitter writes and uploads page documents and triggers ingestion.
type Emitter interface {
	Emit(ctx context.Context, dir, name string, batch *kdi.Batch) (*ingest.EmitResult, error)
	Kickoff(ctx context.Context, connectorID, host, apiKey string) error
}

// Options configures a run.
type Options struct {
	// Connector names the artifacts: <Connector>_<page>.json.
	Connector       string
	Filter          armis.Filter
	BatchSize       int
	OutputDirectory string

	// Kickoff target.
	ConnectorID string
	Host        string
	APIKey      string

	// IncludePartialPage also fetches the trailing page when total is not a
	// multiple of BatchSize. Off by default: the page count is total/BatchSize.
	IncludePartialPage bool
}

// Driver runs the pipeline. A Driver may be reused; every Run gets its own
// mitigation cache and page accumulator.
type Driver struct {
	source  Source
	emitter Emitter
	opts    Options
	logger  *logger.Logger
}

// NewDriver creates a new Driver.
func NewDriver(source Source, emitter Emitter, opts Options, log *logger.Logger) *Driver {
	opts.Filter.PageSize = opts.BatchSize
	return &Driver{
		source:  source,
		emitter: emitter,
		opts:    opts,
		logger:  log.With("component", "pipeline", "connector", opts.Connector),
	}
}

// PageCount returns how many pages a run processes for total findings.
// By default the count is floored, so a trailing partial page is not
// fetched; includePartial rounds up instead.
func PageCount(total, batchSize int, includePartial bool) int {
	if total <= 0 || batchSize <= 0 {
		return 0
	}
	if includePartial {
		return (total + batchSize - 1) / batchSize
	}
	return total / batchSize
}

// ArtifactName returns the file name of a page document.
func ArtifactName(connector string, page int) string {
	return fmt.Sprintf("%s_%d.json", connector, page)
}

// Run executes one full run. On failure it returns the partial Result
// together with a *RunError; pages emitted before the failure stay emitted
// and kickoff is not attempted.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New()
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", runID.String()),
		attribute.String("connector", d.opts.Connector),
	)

	ctx = logger.ContextWith(ctx, "run_id", runID.String())
	log := d.logger.Ctx(ctx)

	result := &Result{RunID: runID, StartedAt: start, State: StateInit}
	cache := NewMitigationCache(d.source)

	err := d.run(ctx, log, result, cache)

	result.MitigationFetches = cache.misses
	result.MitigationCacheHits = cache.hits
	result.Duration = time.Since(start)

	metrics.RunDuration.WithLabelValues(d.opts.Connector).Observe(result.Duration.Seconds())
	if err != nil {
		result.State = StateFailed
		metrics.RunsTotal.WithLabelValues(d.opts.Connector, "failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("run failed",
			"error", err,
			"pages_emitted", len(result.Pages),
			"duration_ms", result.Duration.Milliseconds(),
		)
		return result, err
	}

	result.State = StateDone
	metrics.RunsTotal.WithLabelValues(d.opts.Connector, "success").Inc()
	metrics.LastSuccessTimestamp.WithLabelValues(d.opts.Connector).SetToCurrentTime()
	log.Info("run completed",
		"total", result.Total,
		"pages", result.PageCount,
		"findings", result.FindingsProcessed,
		"mitigation_fetches", result.MitigationFetches,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (d *Driver) run(ctx context.Context, log *logger.Logger, result *Result, cache *MitigationCache) error {
	result.State = StateFetching
	first, err := d.fetchPage(ctx, 0)
	if err != nil {
		return &RunError{Page: 0, Stage: StageFetch, Err: err}
	}

	result.Total = first.Total
	result.PageCount = PageCount(first.Total, d.opts.BatchSize, d.opts.IncludePartialPage)
	if rem := first.Total % max(d.opts.BatchSize, 1); rem != 0 && !d.opts.IncludePartialPage {
		log.Warn("trailing partial page will not be fetched",
			"total", first.Total,
			"batch_size", d.opts.BatchSize,
			"skipped_findings", rem,
		)
	}
	log.Info("run started", "total", result.Total, "pages", result.PageCount, "batch_size", d.opts.BatchSize)

	var batch kdi.Batch
	for page := 0; page < result.PageCount; page++ {
		if err := ctx.Err(); err != nil {
			return &RunError{Page: page, Stage: StageFetch, Err: err}
		}

		resp := first
		if page > 0 {
			result.State = StateFetching
			resp, err = d.fetchPage(ctx, page)
			if err != nil {
				return &RunError{Page: page, Stage: StageFetch, Err: err}
			}
		}

		result.State = StateProcessing
		if err := d.processPage(ctx, log, page, resp, cache, &batch); err != nil {
			return err
		}

		name := ArtifactName(d.opts.Connector, page)
		emitted, err := d.emitter.Emit(ctx, d.opts.OutputDirectory, name, &batch)
		if err != nil {
			return &RunError{Page: page, Stage: StageEmit, Err: err}
		}

		result.FindingsProcessed += batch.Len()
		result.Pages = append(result.Pages, PageResult{
			Page:       page,
			Findings:   batch.Len(),
			Artifact:   name,
			Location:   emitted.Location,
			DataFileID: emitted.DataFileID,
		})
		batch.Reset()
	}

	result.State = StateKickoff
	if err := d.emitter.Kickoff(ctx, d.opts.ConnectorID, d.opts.Host, d.opts.APIKey); err != nil {
		return &RunError{Page: -1, Stage: StageKickoff, Err: err}
	}
	result.KickedOff = true
	return nil
}

func (d *Driver) fetchPage(ctx context.Context, page int) (*armis.FindingsPage, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.FetchPage")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page))

	resp, err := d.source.FetchFindings(ctx, d.opts.Filter, page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	metrics.PagesFetched.WithLabelValues(d.opts.Connector).Inc()
	return resp, nil
}

func (d *Driver) processPage(
	ctx context.Context,
	log *logger.Logger,
	page int,
	resp *armis.FindingsPage,
	cache *MitigationCache,
	batch *kdi.Batch,
) error {
	for _, finding := range resp.Vulnerabilities {
		mitigations, hit, err := cache.Get(ctx, finding.VulnerabilityName)
		if err != nil {
			return &RunError{Page: page, Stage: StageMitigations, Err: err}
		}
		if hit {
			metrics.MitigationLookups.WithLabelValues(d.opts.Connector, "hit").Inc()
		} else {
			metrics.MitigationLookups.WithLabelValues(d.opts.Connector, "miss").Inc()
		}

		if _, ok := mapper.Score(finding.Severity); !ok {
			metrics.UnscoredFindings.WithLabelValues(d.opts.Connector).Inc()
			log.Debug("unrecognized severity, observation has no score",
				"vulnerability", finding.VulnerabilityName,
				"severity", finding.Severity,
			)
		}

		batch.Add(
			mapper.ToAsset(finding),
			mapper.ToObservation(finding),
			mapper.ToDefinition(finding, mitigations),
		)
	}

	metrics.FindingsProcessed.WithLabelValues(d.opts.Connector).Add(float64(len(resp.Vulnerabilities)))
	log.Info("page processed", "page", page, "findings", len(resp.Vulnerabilities), "cached_names", cache.Len())
	return nil
}
