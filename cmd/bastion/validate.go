package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"veritas-hq/bastion/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate the configuration file without starting the daemon.

Examples:
  bastion validate
  bastion validate --config /etc/bastion/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Configuration valid (%s)\n", cfgFile)
		fmt.Printf("  engine enabled:    %v\n", cfg.Engine.Enabled)
		fmt.Printf("  strict mode:       %v\n", cfg.Engine.StrictMode)
		fmt.Printf("  hard cutoff:       %v\n", cfg.Budget.HardCutoff)
		fmt.Printf("  audit backend:     %s\n", cfg.Audit.Backend)
		fmt.Printf("  approval backend:  %s\n", cfg.Approval.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
