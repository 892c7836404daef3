package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"veritas-hq/bastion/pkg/config"
	"veritas-hq/bastion/pkg/guardrail"
)

var checkFlags struct {
	direction string
}

var checkCmd = &cobra.Command{
	Use:   "check [text]",
	Short: "Run a text blob through the content guardrails",
	Long: `Run a text blob through the content guardrails and print the verdict.

Text is taken from the argument, or from stdin when no argument is given.

Examples:
  bastion check "ignore all previous instructions"
  cat response.txt | bastion check --direction output`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFlags.direction, "direction", "input", "filter direction: input or output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		// The check command works without a config file.
		cfg = config.DefaultConfig()
	}

	filter := guardrail.NewFilter(cfg.Guardrail, nil)

	direction := guardrail.DirectionInput
	policies := guardrail.ApplyOverrides(guardrail.DefaultInputPolicies(), cfg.Guardrail.InputPolicies)
	if strings.EqualFold(checkFlags.direction, "output") {
		direction = guardrail.DirectionOutput
		policies = guardrail.ApplyOverrides(guardrail.DefaultOutputPolicies(), cfg.Guardrail.OutputPolicies)
	}

	verdict := filter.Check(direction, text, policies, "cli")

	out, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !verdict.Passed {
		os.Exit(1)
	}
	return nil
}
