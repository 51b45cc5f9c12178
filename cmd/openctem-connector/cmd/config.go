package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect connector configuration",
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the resolved configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		switch flagOutput {
		case outputJSON:
			printJSON(cfg.Redacted())
		case outputYAML, "":
			printYAML(cfg.Redacted())
		default:
			return fmt.Errorf("unsupported output format %q (use yaml or json)", flagOutput)
		}
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		fmt.Println("Configuration is valid.")
		if !cfg.CanUpload() {
			fmt.Println("Note: KDI_CONNECTOR_ID or KDI_API_KEY is not set, documents will only be written to", cfg.Output.Directory)
		}
		return nil
	},
}

func init() {
	configViewCmd.Flags().StringVarP(&flagOutput, "output", "o", outputYAML, "Output format: yaml, json")
	addRunFlags(configViewCmd)
	addRunFlags(configValidateCmd)

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configValidateCmd)
}
