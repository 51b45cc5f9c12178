package cmd

import (
	"context"

	"github.com/openctemio/connector/internal/armis"
	"github.com/openctemio/connector/internal/config"
	"github.com/openctemio/connector/internal/infra/httpclient"
	"github.com/openctemio/connector/internal/infra/storage"
	"github.com/openctemio/connector/internal/infra/telemetry"
	"github.com/openctemio/connector/internal/ingest"
	"github.com/openctemio/connector/internal/pipeline"
	"github.com/openctemio/connector/pkg/logger"
)

// newDriver wires a pipeline for one run. Every call returns fresh
// components, so nothing is shared between scheduled runs.
func newDriver(cfg *config.Config, log *logger.Logger) *pipeline.Driver {
	// Retry counts are validated non-negative.
	sourceTransport := httpclient.New(transportConfig(cfg, uint(cfg.HTTP.MaxRetries), cfg.Armis.RequestsPerSecond), log) //nolint:gosec
	ingestTransport := httpclient.New(transportConfig(cfg, uint(cfg.Ingest.MaxRetries), 0), log)                       //nolint:gosec

	source := armis.NewClient(armis.Config{
		Host:     cfg.Armis.Host,
		Username: cfg.Armis.Username,
		Password: cfg.Armis.Password,
	}, sourceTransport, log)

	writer := storage.NewRouter(storage.S3Config{
		Region:     cfg.Storage.Region,
		Endpoint:   cfg.Storage.Endpoint,
		AuthType:   cfg.Storage.AuthType,
		AccessKey:  cfg.Storage.AccessKey,
		SecretKey:  cfg.Storage.SecretKey,
		RoleARN:    cfg.Storage.RoleARN,
		ExternalID: cfg.Storage.ExternalID,
	})

	emitter := ingest.NewEmitter(ingest.Config{
		Connector:     cfg.App.Connector,
		Host:          cfg.Ingest.Host,
		APIKey:        cfg.Ingest.APIKey,
		ConnectorID:   cfg.Ingest.ConnectorID,
		SkipAutoclose: cfg.Ingest.SkipAutoclose,
		Version:       cfg.Ingest.Version,
	}, writer, ingestTransport, log)

	return pipeline.NewDriver(source, emitter, pipeline.Options{
		Connector: cfg.App.Connector,
		Filter: armis.Filter{
			Severity:  armis.SeverityFilter(cfg.Filter.Severity),
			Status:    armis.StatusFilter(cfg.Filter.Status),
			Name:      cfg.Filter.Name,
			DeviceMAC: cfg.Filter.DeviceMac,
		},
		BatchSize:          cfg.Pipeline.BatchSize,
		OutputDirectory:    cfg.Output.Directory,
		ConnectorID:        cfg.Ingest.ConnectorID,
		Host:               cfg.Ingest.Host,
		APIKey:             cfg.Ingest.APIKey,
		IncludePartialPage: cfg.Pipeline.IncludePartialPage,
	}, log)
}

func transportConfig(cfg *config.Config, maxRetries uint, rps float64) httpclient.Config {
	tc := httpclient.DefaultConfig()
	tc.Timeout = cfg.HTTP.Timeout
	tc.MaxRetries = maxRetries
	tc.InitialInterval = cfg.HTTP.InitialInterval
	tc.MaxInterval = cfg.HTTP.MaxInterval
	tc.UserAgent = "openctem-connector/" + version
	tc.RequestsPerSecond = rps
	tc.Burst = 1
	return tc
}

func setupTracing(ctx context.Context, cfg *config.Config, log *logger.Logger) (telemetry.ShutdownFunc, error) {
	return telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
}
