package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/scaffold/internal/config"
	"github.com/abhisek/scaffold/internal/hints"
	"github.com/abhisek/scaffold/internal/llm"
	"github.com/abhisek/scaffold/internal/logging"
	"github.com/abhisek/scaffold/internal/monitor"
	"github.com/abhisek/scaffold/internal/orchestrator"
	"github.com/abhisek/scaffold/internal/sim"
	"github.com/abhisek/scaffold/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario's agents through its curriculum",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := runOptions{}
		opts.scenario, _ = cmd.Flags().GetString("scenario")
		opts.tui, _ = cmd.Flags().GetBool("tui")
		opts.resume, _ = cmd.Flags().GetBool("resume")
		if cmd.Flags().Changed("max-ticks") {
			opts.maxTicks, _ = cmd.Flags().GetInt("max-ticks")
		}
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			cfg.Metrics.Addr = addr
		}

		logger, err := newLogger(cfg, opts.tui)
		if err != nil {
			return err
		}
		defer func() { _ = logging.Sync(logger) }()

		st, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		return runScenario(cmd.Context(), cfg, st, logger, opts, cmd.OutOrStdout())
	},
}

type runOptions struct {
	scenario string
	maxTicks int // overrides the scenario and config budget when set
	tui      bool
	resume   bool
}

// runScenario loads the scenario, wires the orchestrator to the store and
// hint provider, runs it and prints the summary to out.
func runScenario(ctx context.Context, cfg config.Config, st *store.Store, logger *zap.Logger, opts runOptions, out io.Writer) error {
	scenario, err := sim.LoadScenario(opts.scenario)
	if err != nil {
		return err
	}
	c, warnings, err := scenario.LoadCurriculum()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Warn("curriculum warning", zap.Stringer("warning", w))
	}

	maxTicks := cfg.Run.MaxTicks
	if scenario.MaxTicks > 0 {
		maxTicks = scenario.MaxTicks
	}
	if opts.maxTicks > 0 {
		maxTicks = opts.maxTicks
	}

	events := st.EventRepo()
	provider, err := llm.NewProvider(ctx, cfg.LLM, events, logger)
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Debug("no LLM provider, hints come from the curriculum")
	case err != nil:
		logger.Warn("LLM provider unavailable, hints come from the curriculum", zap.Error(err))
		provider = nil
	}
	resolver := hints.NewResolver(provider, events, cfg.Hints, logger)

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr, logger)
		defer stop()
	}

	env, agents := scenario.Build()
	ids := make([]string, len(agents))
	for i, a := range agents {
		ids[i] = a.ID
	}

	run := func(ctx context.Context, sink orchestrator.Sink) (orchestrator.Summary, error) {
		sinks := []orchestrator.Sink{orchestrator.NewStoreSink(events), orchestrator.NewLogSink(logger)}
		if sink != nil {
			sinks = append(sinks, sink)
		}
		o := orchestrator.New(c, env, env.Telemetry(), orchestrator.Options{
			MaxTicks:      maxTicks,
			Logger:        logger,
			Sinks:         sinks,
			Hints:         resolver,
			Snapshots:     st.SnapshotRepo(),
			SnapshotEvery: cfg.Run.SnapshotEvery,
			SnapshotKeep:  cfg.Run.SnapshotKeep,
		})
		for _, a := range agents {
			if err := o.Register(a.ID, a); err != nil {
				return orchestrator.Summary{}, err
			}
		}
		if opts.resume {
			snap, err := st.SnapshotRepo().Latest(ctx, c.Name())
			if err != nil {
				return orchestrator.Summary{}, fmt.Errorf("load snapshot: %w", err)
			}
			if snap == nil {
				logger.Info("no snapshot to resume, starting fresh")
			}
			if err := o.Resume(snap); err != nil {
				return orchestrator.Summary{}, err
			}
		}
		return o.Run(ctx)
	}

	var sum orchestrator.Summary
	if opts.tui {
		sum, err = monitor.Run(ctx, monitor.New(c, ids, nil), run)
	} else {
		sum, err = run(ctx, nil)
	}
	if sum.RunID != "" {
		printSummary(out, sum)
	}
	return err
}

// serveMetrics exposes the Prometheus registry on addr until stop is called.
func serveMetrics(addr string, logger *zap.Logger) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr), zap.String("path", "/metrics"))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printSummary(w io.Writer, s orchestrator.Summary) {
	fmt.Fprintf(w, "Run %s of %s: %d ticks\n", s.RunID, s.Curriculum, s.Ticks)
	fmt.Fprintf(w, "  finished %d  failed %d  active %d\n", s.Finished, s.Failed, s.Active)
	if s.BudgetExhausted {
		fmt.Fprintln(w, "  tick budget exhausted")
	}
	if s.Cancelled {
		fmt.Fprintln(w, "  cancelled")
	}

	ids := make([]string, 0, len(s.Statuses))
	for id := range s.Statuses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-20s %s\n", id, s.Statuses[id])
	}
}

func init() {
	runCmd.Flags().StringP("scenario", "s", "", "Scenario file describing the curriculum and scripted agents")
	runCmd.Flags().Int("max-ticks", 0, "Tick budget (overrides the scenario and run.max_ticks)")
	runCmd.Flags().Bool("tui", false, "Show the live run monitor")
	runCmd.Flags().Bool("resume", false, "Resume from the latest snapshot of the same curriculum")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides metrics.addr)")
	_ = runCmd.MarkFlagRequired("scenario")
}
