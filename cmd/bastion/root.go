package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion - policy enforcement engine for AI agent actions",
	Long: `Bastion vets every AI agent action before it happens.

It combines four enforcement layers:
  - Content guardrails over model inputs and outputs
  - Token and cost budgets per request, session, and day
  - Human approval workflow for risky tool actions
  - Audit logging of every enforcement decision`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
