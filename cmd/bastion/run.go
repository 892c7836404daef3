package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"veritas-hq/bastion/pkg/approval"
	"veritas-hq/bastion/pkg/audit"
	"veritas-hq/bastion/pkg/budget"
	"veritas-hq/bastion/pkg/config"
	"veritas-hq/bastion/pkg/enforce"
	"veritas-hq/bastion/pkg/guardrail"
	"veritas-hq/bastion/pkg/policysource"
	"veritas-hq/bastion/pkg/ratelimit"
	"veritas-hq/bastion/pkg/telemetry/logging"
	"veritas-hq/bastion/pkg/telemetry/metrics"
	"veritas-hq/bastion/pkg/telemetry/tracing"
	"veritas-hq/bastion/pkg/tokens"
	"veritas-hq/bastion/pkg/usermon"
)

var runFlags struct {
	logLevel string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the enforcement daemon",
	Long: `Start the enforcement daemon with the specified configuration.

The daemon keeps the long-lived parts of the engine running: the budget
tracker sweep, audit retention pruning, policy override reloading, and
the metrics endpoint. Approvals created by embedded enforcers share its
SQLite stores and can be resolved with "bastion approvals resolve".

Examples:
  # Start with default config
  bastion run

  # Start with custom config
  bastion run --config /etc/bastion/config.yaml`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Install()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.New(cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	// Audit pipeline.
	auditStore, err := newAuditStore(cfg)
	if err != nil {
		return err
	}
	defer auditStore.Close()

	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		recorder = audit.NewRecorder(auditStore, audit.RecorderConfig{
			BufferSize:     cfg.Audit.BufferSize,
			SampleMaxChars: cfg.Audit.SampleMaxChars,
			Redact:         logging.NewRedactor().RedactString,
		})
		defer recorder.Close()

		scheduler := audit.NewScheduler(audit.NewPruner(auditStore, cfg.Audit.RetentionDays), cfg.Audit.PruneSchedule)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start audit retention: %w", err)
		}
	}

	// Approval workflow.
	approvalStore, err := newApprovalStore(cfg)
	if err != nil {
		return err
	}
	defer approvalStore.Close()
	workflow := approval.NewWorkflow(approvalStore, cfg.Approval, recorder)

	// Budget tracking with its idle sweep.
	manager := budget.NewManager(cfg.Budget, recorder)
	sweeper := budget.NewSweepScheduler(manager, cfg.Budget.SweepSchedule)
	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start budget sweep: %w", err)
	}

	m := metrics.New()
	enforcer := enforce.New(*cfg, enforce.Deps{
		Filter:      guardrail.NewFilter(cfg.Guardrail, recorder),
		Budget:      manager,
		Workflow:    workflow,
		Estimator:   tokens.NewEstimator(nil),
		Recorder:    recorder,
		Metrics:     m,
		RateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		Monitor:     usermon.NewMonitor(),
	})

	if err := startPolicySource(ctx, cfg, enforcer); err != nil {
		return err
	}

	if cfg.Telemetry.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Telemetry.Metrics, m)
	}

	logger.Info("bastion enforcement daemon started",
		"audit_backend", cfg.Audit.Backend,
		"approval_backend", cfg.Approval.Backend,
		"strict_mode", cfg.Engine.StrictMode,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	sweeper.Stop()
	return nil
}

func newAuditStore(cfg *config.Config) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		store, err := audit.NewSQLiteStore(&audit.SQLiteConfig{Path: cfg.Audit.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		return store, nil
	default:
		return audit.NewMemoryStore(), nil
	}
}

func newApprovalStore(cfg *config.Config) (approval.Store, error) {
	switch cfg.Approval.Backend {
	case "sqlite":
		store, err := approval.NewSQLiteStore(cfg.Approval.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open approval store: %w", err)
		}
		return store, nil
	default:
		return approval.NewMemoryStore(), nil
	}
}

// startPolicySource wires the configured override source into the
// enforcer's policy sets.
func startPolicySource(ctx context.Context, cfg *config.Config, enforcer *enforce.Enforcer) error {
	onReload := func(set *policysource.PolicySet) {
		enforcer.SetPolicies(set.Input, set.Output)
	}

	switch cfg.PolicySource.Mode {
	case "file":
		source := policysource.NewFileSource(cfg.PolicySource.FilePath)
		set, err := source.Load()
		if err != nil {
			return fmt.Errorf("failed to load policy overrides: %w", err)
		}
		onReload(set)

		if cfg.PolicySource.Watch {
			watcher := policysource.NewWatcher(source, onReload)
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("failed to watch policy file: %w", err)
			}
		}
		return nil

	case "git":
		source := policysource.NewGitSource(cfg.PolicySource.Git)
		if err := source.Start(ctx, onReload); err != nil {
			return fmt.Errorf("failed to start git policy source: %w", err)
		}
		return nil

	default:
		return nil
	}
}

func startMetricsServer(ctx context.Context, cfg config.MetricsConfig, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "metrics server failed: %v\n", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
}
