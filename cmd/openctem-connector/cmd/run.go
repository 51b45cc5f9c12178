package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openctemio/connector/internal/config"
	"github.com/openctemio/connector/internal/metrics"
	"github.com/openctemio/connector/internal/pipeline"
	"github.com/openctemio/connector/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connector once",
	Long: `Fetch all findings page by page, write one import document per page,
upload each document and start the import once every page is uploaded.

Upload and import are skipped when no connector id or API key is set; the
documents are still written to the output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := setupTracing(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer flushTracing(shutdownTracing, log)

		result, err := runOnce(ctx, cfg, log)
		if err != nil {
			return err
		}

		printResult(result, cfg)
		return nil
	},
}

func init() {
	addRunFlags(runCmd)
}

// runOnce executes a single run with fresh components and pushes metrics.
func runOnce(ctx context.Context, cfg *config.Config, log *logger.Logger) (*pipeline.Result, error) {
	result, err := newDriver(cfg, log).Run(ctx)

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if pushErr := metrics.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); pushErr != nil {
		log.Warn("failed to push metrics", "error", pushErr)
	}

	return result, err
}

func flushTracing(shutdown func(context.Context) error, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn("failed to flush traces", "error", err)
	}
}

func printResult(r *pipeline.Result, cfg *config.Config) {
	fmt.Fprintf(os.Stdout, "Run %s %s\n", r.RunID, r.State)
	fmt.Fprintf(os.Stdout, "  Findings:  %d of %d\n", r.FindingsProcessed, r.Total)
	fmt.Fprintf(os.Stdout, "  Pages:     %d\n", len(r.Pages))
	fmt.Fprintf(os.Stdout, "  Output:    %s\n", cfg.Output.Directory)
	fmt.Fprintf(os.Stdout, "  Uploaded:  %s\n", boolToStr(cfg.CanUpload()))
	fmt.Fprintf(os.Stdout, "  Duration:  %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Pages) == 0 {
		return
	}
	t := newTable("PAGE", "FINDINGS", "LOCATION", "DATA FILE")
	for _, p := range r.Pages {
		dataFile := "-"
		if p.DataFileID != 0 {
			dataFile = fmt.Sprintf("%d", p.DataFileID)
		}
		t.AddRow(fmt.Sprintf("%d", p.Page), fmt.Sprintf("%d", p.Findings), p.Location, dataFile)
	}
	fmt.Println()
	t.Flush()
}
