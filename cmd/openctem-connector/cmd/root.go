package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/openctemio/connector/internal/config"
	"github.com/openctemio/connector/pkg/logger"
)

var (
	version string

	// Global flags
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "openctem-connector",
	Short: "Import Armis vulnerability findings",
	Long: `openctem-connector pulls vulnerability findings from the Armis API,
converts them into KDI import documents, writes one document per page and
uploads them to the vulnerability management platform.

Settings come from environment variables, an optional YAML file (--config)
and command line flags, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file (env: CONNECTOR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: json, text (env: LOG_FORMAT)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the configuration for cmd: environment, then the
// config file, then flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := flagConfig
	if path == "" {
		path = os.Getenv("CONNECTOR_CONFIG")
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	applyRunFlags(cmd, cfg)
	cfg.ApplyDefaults()

	return cfg, nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	}).With("connector", cfg.App.Connector, "version", version)
	log.SetDefault()
	return log
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show connector version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("openctem-connector version %s\n", version)
		fmt.Printf("  Go:       %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:  %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
