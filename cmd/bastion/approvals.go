package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"veritas-hq/bastion/pkg/approval"
	"veritas-hq/bastion/pkg/config"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List and resolve pending approval requests",
}

var approvalsListFlags struct {
	user string
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending approval requests",
	Long: `List pending approval requests, lazily expiring overdue entries.

Examples:
  bastion approvals list
  bastion approvals list --user alice`,
	RunE: runApprovalsList,
}

var approvalsResolveFlags struct {
	approve bool
	reject  bool
	by      string
	reason  string
}

var approvalsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Approve or reject a pending request",
	Long: `Approve or reject a pending approval request.

Resolution is idempotent: resolving an already-resolved request prints
its terminal state without changing it.

Examples:
  bastion approvals resolve 4f7c... --approve --by alice
  bastion approvals resolve 4f7c... --reject --by alice --reason "not during release freeze"`,
	Args: cobra.ExactArgs(1),
	RunE: runApprovalsResolve,
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd)
	approvalsCmd.AddCommand(approvalsResolveCmd)

	approvalsListCmd.Flags().StringVar(&approvalsListFlags.user, "user", "", "filter by user ID")

	approvalsResolveCmd.Flags().BoolVar(&approvalsResolveFlags.approve, "approve", false, "approve the request")
	approvalsResolveCmd.Flags().BoolVar(&approvalsResolveFlags.reject, "reject", false, "reject the request")
	approvalsResolveCmd.Flags().StringVar(&approvalsResolveFlags.by, "by", "", "resolver identity (required)")
	approvalsResolveCmd.Flags().StringVar(&approvalsResolveFlags.reason, "reason", "", "resolution comment")
	approvalsResolveCmd.MarkFlagRequired("by")
}

// openWorkflow builds a workflow over the configured approval store.
// The CLI only makes sense against a SQLite backend shared with the
// enforcing process.
func openWorkflow() (*approval.Workflow, func(), error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Approval.Backend != "sqlite" {
		return nil, nil, fmt.Errorf("approvals CLI requires the sqlite approval backend (configured: %q)", cfg.Approval.Backend)
	}

	store, err := approval.NewSQLiteStore(cfg.Approval.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open approval store: %w", err)
	}
	return approval.NewWorkflow(store, cfg.Approval, nil), func() { store.Close() }, nil
}

func runApprovalsList(cmd *cobra.Command, args []string) error {
	workflow, cleanup, err := openWorkflow()
	if err != nil {
		return err
	}
	defer cleanup()

	pending, err := workflow.ListPending(context.Background(), approvalsListFlags.user)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending approvals.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tACTION\tRISK\tEXPIRES\tREASON")
	for _, req := range pending {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			req.ID, req.UserID, req.Action, req.RiskLevel,
			req.ExpiresAt.Format(time.RFC3339), req.Reason)
	}
	return w.Flush()
}

func runApprovalsResolve(cmd *cobra.Command, args []string) error {
	if approvalsResolveFlags.approve == approvalsResolveFlags.reject {
		return fmt.Errorf("exactly one of --approve or --reject is required")
	}

	workflow, cleanup, err := openWorkflow()
	if err != nil {
		return err
	}
	defer cleanup()

	decision := approval.DecisionApprove
	if approvalsResolveFlags.reject {
		decision = approval.DecisionReject
	}

	req, err := workflow.Resolve(context.Background(), args[0],
		approvalsResolveFlags.by, decision, approvalsResolveFlags.reason)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (%s, %s risk) -> %s\n",
		req.ID, req.Action, req.UserID, req.RiskLevel, req.Status)
	return nil
}
