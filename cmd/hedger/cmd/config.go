package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/hedger/config"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Generate or validate configuration files",
		Long: `Manage hedger configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  hedger config init -o hedger.yaml
  hedger config validate -f hedger.yaml`,
		// Config commands work on files, not on the loaded config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := cfg.SaveToFile(output); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created default configuration: %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "hedger.yaml", "output config file path")

	var path string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(path)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "✓ Configuration valid: %s\n", path)
			fmt.Fprintf(w, "  Actor: %s (roles %v)\n", cfg.Actor.Name, cfg.Actor.Roles)
			if cfg.API.BaseURL != "" {
				fmt.Fprintf(w, "  Backend: %s\n", cfg.API.BaseURL)
			} else {
				fmt.Fprintf(w, "  Backend: local store %s\n", cfg.Store.DBPath)
			}
			fmt.Fprintf(w, "  Methods: %d\n", len(cfg.EffectivenessMethods()))
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&path, "file", "f", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("file")

	configCmd.AddCommand(initCmd, validateCmd)
	return configCmd
}
