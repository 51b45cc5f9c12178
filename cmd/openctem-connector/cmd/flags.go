package cmd

import (
	"github.com/spf13/cobra"

	"github.com/openctemio/connector/internal/config"
)

// runFlags holds the pipeline overrides shared by run and schedule.
var runFlags struct {
	severity           string
	status             string
	name               string
	deviceMac          string
	batchSize          int
	outputDirectory    string
	includePartialPage bool
	connectorID        string
	apiHost            string
	skipAutoclose      bool
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&runFlags.severity, "severity", "", "Only fetch findings of this severity: LOW, MEDIUM, HIGH, CRITICAL")
	f.StringVar(&runFlags.status, "status", "", "Only fetch findings with this status: OPEN, IN_PROGRESS, RESOLVED, SUPPRESSED")
	f.StringVar(&runFlags.name, "name", "", "Only fetch findings with this vulnerability name")
	f.StringVar(&runFlags.deviceMac, "device-mac", "", "Only fetch findings for this device MAC address")
	f.IntVar(&runFlags.batchSize, "batch-size", 0, "Findings per page and per document (env: BATCH_SIZE)")
	f.StringVar(&runFlags.outputDirectory, "output-directory", "", "Local directory or s3://bucket/prefix for documents (env: OUTPUT_DIRECTORY)")
	f.BoolVar(&runFlags.includePartialPage, "include-partial-page", false, "Also process the trailing page when total is not a multiple of the batch size")
	f.StringVar(&runFlags.connectorID, "connector-id", "", "Connector id on the import API (env: KDI_CONNECTOR_ID)")
	f.StringVar(&runFlags.apiHost, "api-host", "", "Import API host (env: KDI_API_HOST)")
	f.BoolVar(&runFlags.skipAutoclose, "skip-autoclose", false, "Ask the importer not to close vulnerabilities missing from this import")
}

// applyRunFlags copies flags set on the command line into cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("severity") {
		cfg.Filter.Severity = runFlags.severity
	}
	if f.Changed("status") {
		cfg.Filter.Status = runFlags.status
	}
	if f.Changed("name") {
		cfg.Filter.Name = runFlags.name
	}
	if f.Changed("device-mac") {
		cfg.Filter.DeviceMac = runFlags.deviceMac
	}
	if f.Changed("batch-size") {
		cfg.Pipeline.BatchSize = runFlags.batchSize
	}
	if f.Changed("output-directory") {
		cfg.Output.Directory = runFlags.outputDirectory
	}
	if f.Changed("include-partial-page") {
		cfg.Pipeline.IncludePartialPage = runFlags.includePartialPage
	}
	if f.Changed("connector-id") {
		cfg.Ingest.ConnectorID = runFlags.connectorID
	}
	if f.Changed("api-host") {
		cfg.Ingest.Host = runFlags.apiHost
	}
	if f.Changed("skip-autoclose") {
		cfg.Ingest.SkipAutoclose = runFlags.skipAutoclose
	}
}
