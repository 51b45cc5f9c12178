package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openctemio/connector/internal/config"
	httpserver "github.com/openctemio/connector/internal/infra/http"
	"github.com/openctemio/connector/internal/pipeline"
	"github.com/openctemio/connector/internal/scheduler"
	"github.com/openctemio/connector/pkg/logger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the connector on a cron schedule",
	Long: `Run the connector repeatedly on the cron expression in SCHEDULE_CRON
(default "0 */6 * * *", UTC). A run that is still in progress when the next
one is due causes that tick to be skipped.

While scheduled, /health, /ready and /metrics are served on
METRICS_LISTEN_ADDR.`,
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

		return serveSchedule(ctx, cfg, log)
	},
}

func init() {
	addRunFlags(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleFlags.cron, "cron", "", "Cron expression (env: SCHEDULE_CRON)")
	scheduleCmd.Flags().StringVar(&scheduleFlags.listen, "listen", "", "Address for /health and /metrics (env: METRICS_LISTEN_ADDR)")
}

var scheduleFlags struct {
	cron   string
	listen string
}

func serveSchedule(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if scheduleFlags.cron != "" {
		cfg.Schedule.Cron = scheduleFlags.cron
	}
	if scheduleFlags.listen != "" {
		cfg.Metrics.ListenAddr = scheduleFlags.listen
	}

	sched, err := scheduler.New(cfg.Schedule.Cron, func(ctx context.Context) (*pipeline.Result, error) {
		return runOnce(ctx, cfg, log)
	}, log)
	if err != nil {
		return err
	}

	server := httpserver.NewServer(cfg.Metrics.ListenAddr, func() httpserver.RunStatus {
		st := sched.Status()
		return httpserver.RunStatus{
			Running:   st.Running,
			Runs:      st.Runs,
			LastRunAt: st.LastRunAt,
			LastState: string(st.LastState),
			LastError: st.LastError,
			NextRunAt: st.NextRunAt,
		}
	}, log)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	if err := sched.Start(ctx); err != nil {
		return err
	}
	if cfg.Schedule.RunOnStart {
		sched.RunAsync(ctx)
	}

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("scheduler shutdown error", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("connector stopped")
	return nil
}
