package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/embruze/SexualEqualityABM-1/internal/logging"
	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

// sensitivityOutput is the JSON shape of the sensitivity command.
type sensitivityOutput struct {
	Baseline   simulation.Trial    `json:"baseline"`
	Report     *sensitivity.Report `json:"report"`
	Violations []string            `json:"violations,omitempty"`
}

func newSensitivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Run the sensitivity analysis",
		Long: `Run a baseline simulation, then analyse it:

  odds_ratio   depression odds ratios by minority status, support and density
  regression   correlations between support, concealment, discrimination
               and depression across minority agents
  impact       rebuild and rerun with each causal coefficient scaled
  parameter    rebuild and rerun with each initial value fixed

Results are stored in ~/.smdsim/results.db unless --no-store is given or the
store is disabled in config.

Examples:
  smdsim sensitivity
  smdsim sensitivity --passes odds_ratio,regression --check
  smdsim sensitivity --nodes 200 --workers 8 --json`,
		RunE: runSensitivity,
	}

	addScenarioFlags(cmd)
	cmd.Flags().StringSlice("passes", nil, "Passes to run (odds_ratio, regression, impact, parameter; default all)")
	cmd.Flags().Int("workers", 0, "Concurrent sweep trials (default GOMAXPROCS)")
	cmd.Flags().Bool("no-store", false, "Do not store results")
	cmd.Flags().Bool("check", false, "Check odds ratios and regressions against published ranges")
	return cmd
}

func runSensitivity(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	if passes, _ := cmd.Flags().GetStringSlice("passes"); len(passes) > 0 {
		opts, err := parsePasses(passes)
		if err != nil {
			return err
		}
		opts.Workers = cfg.Sensitivity.Workers
		cfg.Sensitivity.Options = opts
	}
	if cmd.Flags().Changed("workers") {
		cfg.Sensitivity.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	if cfg.Sensitivity.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Sensitivity.Timeout)
		defer cancel()
	}

	logger := newLogger(cmd, cfg)
	runner := simulation.NewRunner(simulation.RunnerConfig{
		StageWorkers: cfg.Simulation.StageWorkers,
		Logger:       logger,
	})

	sc := cfg.Scenario()
	logger.Info("running baseline", "scenario", sc.Name, "seed", sc.Seed, "nodes", sc.Params.NodeCount, "steps", sc.Params.TimeSpan)
	baseline, err := runner.Run(ctx, sc)
	if err != nil {
		return fmt.Errorf("baseline run failed: %w", err)
	}

	driverCfg := sensitivity.Config{
		Simulator: runner,
		Options:   cfg.Sensitivity.Options,
		Logger:    logger,
	}

	dataDir, dirErr := cfg.DataDir()
	if dirErr != nil {
		logger.Warn("no data directory, trial trace disabled", "error", dirErr)
	} else {
		trials := logging.NewTrialLogger(dataDir, cfg.Logging.Level)
		defer trials.Close()
		driverCfg.Trials = trials
	}

	noStore, _ := cmd.Flags().GetBool("no-store")
	if cfg.Store.Enabled && !noStore {
		if dirErr != nil {
			return fmt.Errorf("failed to resolve data directory: %w", dirErr)
		}
		s, err := store.Open(ctx, store.DBPath(dataDir))
		if err != nil {
			return fmt.Errorf("failed to open results store: %w", err)
		}
		defer s.Close()

		sink, err := s.NewRun(ctx, sc, &baseline.Trial)
		if err != nil {
			return err
		}
		driverCfg.Sink = sink
		driverCfg.RunID = sink.RunID()
		logger.Debug("storing results", "run_id", sink.RunID(), "path", s.Path())
	}

	report, err := sensitivity.NewDriver(driverCfg).Run(ctx, sc, baseline.Network)
	if err != nil {
		return err
	}

	out := sensitivityOutput{Baseline: baseline.Trial, Report: report}
	check, _ := cmd.Flags().GetBool("check")
	if check {
		for _, v := range sensitivity.CheckLiterature(report) {
			out.Violations = append(out.Violations, v.Error())
		}
	}

	if jsonOutput(cmd) {
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "Baseline:")
		printTrial(w, baseline.Trial)
		fmt.Fprintln(w)
		printReport(w, report)
		if check {
			if len(out.Violations) == 0 {
				fmt.Fprintln(w, "All checked statistics are within published ranges.")
			} else {
				fmt.Fprintln(w, "Out of published range:")
				for _, v := range out.Violations {
					fmt.Fprintf(w, "  %s\n", v)
				}
			}
		}
	}

	if len(out.Violations) > 0 {
		return fmt.Errorf("%d statistics outside published ranges", len(out.Violations))
	}
	return nil
}

// parsePasses maps pass names to Options.
func parsePasses(names []string) (sensitivity.Options, error) {
	var opts sensitivity.Options
	for _, name := range names {
		switch strings.TrimSpace(name) {
		case sensitivity.PassOddsRatio:
			opts.OddsRatio = true
		case sensitivity.PassRegression:
			opts.Regression = true
		case sensitivity.PassImpact:
			opts.Impact = true
		case sensitivity.PassParameter:
			opts.Parameter = true
		case "all":
			opts = sensitivity.AllPasses()
		default:
			return opts, fmt.Errorf("unknown pass %q (valid: odds_ratio, regression, impact, parameter, all)", name)
		}
	}
	return opts, nil
}
