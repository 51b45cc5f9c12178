package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addRunFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Setenv("ARMIS_HOST", "acme.armis.com")
	t.Setenv("ARMIS_USERNAME", "svc")
	t.Setenv("ARMIS_PASSWORD", "hunter2")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("ARMIS_SEVERITY", "LOW")

	path := filepath.Join(t.TempDir(), "connector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  batch_size: 200\nfilter:\n  status: OPEN\n"), 0o600))
	flagConfig = path
	t.Cleanup(func() { flagConfig = "" })

	cmd := newTestCommand(t, "--batch-size", "300", "--severity", "critical", "--include-partial-page")

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.Pipeline.BatchSize, "flag wins over file and env")
	assert.Equal(t, "CRITICAL", cfg.Filter.Severity)
	assert.Equal(t, "OPEN", cfg.Filter.Status, "file value kept when no flag is set")
	assert.True(t, cfg.Pipeline.IncludePartialPage)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_UnsetFlagsKeepEnv(t *testing.T) {
	t.Setenv("ARMIS_HOST", "acme.armis.com")
	t.Setenv("KDI_CONNECTOR_ID", "42")
	t.Setenv("OUTPUT_DIRECTORY", "/var/lib/connector")

	cfg, err := loadConfig(newTestCommand(t))
	require.NoError(t, err)

	assert.Equal(t, "42", cfg.Ingest.ConnectorID)
	assert.Equal(t, "/var/lib/connector", cfg.Output.Directory)
	assert.False(t, cfg.Pipeline.IncludePartialPage)
}

func TestNewDriver_Wires(t *testing.T) {
	t.Setenv("ARMIS_HOST", "acme.armis.com")
	cfg, err := loadConfig(newTestCommand(t))
	require.NoError(t, err)

	assert.NotNil(t, newDriver(cfg, newLogger(cfg)))
}
