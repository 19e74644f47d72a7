// Package sensitivity analyses how the model's outcomes respond to its
// parameters and checks its statistics against published ranges.
//
// A Driver runs up to four passes. The odds ratio and regression passes read
// a finished network. The impact and parameter sweeps re-run the simulation
// from the original scenario with one quantity changed per trial. Sweep
// trials are independent and run concurrently, but results are always placed
// in sweep order.
package sensitivity

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/embruze/SexualEqualityABM-1/internal/logging"
	"github.com/embruze/SexualEqualityABM-1/internal/network"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

// Simulator runs one scenario to completion.
type Simulator interface {
	Run(ctx context.Context, s simulation.Scenario) (simulation.Result, error)
}

// Options selects the passes to run.
type Options struct {
	OddsRatio  bool `json:"odds_ratio" yaml:"odds_ratio"`
	Regression bool `json:"regression" yaml:"regression"`
	Impact     bool `json:"impact" yaml:"impact"`
	Parameter  bool `json:"parameter" yaml:"parameter"`

	// Workers bounds concurrent sweep trials. Zero uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
}

// AllPasses enables every pass.
func AllPasses() Options {
	return Options{OddsRatio: true, Regression: true, Impact: true, Parameter: true}
}

// Report is everything a Driver run produced.
type Report struct {
	RunID             string        `json:"run_id,omitempty"`
	OddsRatios        []Row         `json:"odds_ratios,omitempty"`
	Regressions       []Correlation `json:"regressions,omitempty"`
	Impact            []Series      `json:"impact,omitempty"`
	ImpactCorrelation []Row         `json:"impact_correlation,omitempty"`
	Parameter         []Series      `json:"parameter,omitempty"`
}

// Config configures a Driver.
type Config struct {
	Simulator Simulator
	Options   Options

	// Sink receives each pass's data. Nil discards it.
	Sink Sink

	// Logger receives progress output. Nil discards it.
	Logger *slog.Logger

	// Trials receives one record per sweep trial. Nil disables the trace.
	Trials *logging.TrialLogger

	// RunID tags trial records and the report.
	RunID string
}

// Driver runs the sensitivity passes.
type Driver struct {
	sim     Simulator
	opts    Options
	sink    Sink
	logger  *slog.Logger
	trials  *logging.TrialLogger
	runID   string
	workers int
}

// NewDriver creates a driver. A nil Simulator uses a default Runner.
func NewDriver(cfg Config) *Driver {
	d := &Driver{
		sim:     cfg.Simulator,
		opts:    cfg.Options,
		sink:    cfg.Sink,
		logger:  cfg.Logger,
		trials:  cfg.Trials,
		runID:   cfg.RunID,
		workers: cfg.Options.Workers,
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.sim == nil {
		d.sim = simulation.NewRunner(simulation.RunnerConfig{Logger: d.logger})
	}
	if d.sink == nil {
		d.sink = discardSink{}
	}
	if d.workers <= 0 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	return d
}

// Run performs the enabled passes. original is the scenario the sweeps
// rebuild from; final is the finished network the odds ratio and regression
// passes read. final may be nil when neither of those passes is enabled.
func (d *Driver) Run(ctx context.Context, original simulation.Scenario, final *network.Network) (*Report, error) {
	report := &Report{RunID: d.runID}

	if (d.opts.OddsRatio || d.opts.Regression) && final == nil {
		return nil, fmt.Errorf("sensitivity: odds ratio and regression passes need a finished network")
	}

	if d.opts.OddsRatio {
		d.logger.Info("performing odds ratio tests")
		report.OddsRatios = OddsRatios(final)
		if err := d.sink.WriteRows(ctx, PassOddsRatio, report.OddsRatios); err != nil {
			return nil, fmt.Errorf("failed to write odds ratios: %w", err)
		}
	}

	if d.opts.Regression {
		d.logger.Info("performing regression tests")
		report.Regressions = Regressions(final)
		var rows []Row
		for _, c := range report.Regressions {
			rows = append(rows, c.Rows()...)
		}
		if err := d.sink.WriteRows(ctx, PassRegression, rows); err != nil {
			return nil, fmt.Errorf("failed to write regressions: %w", err)
		}
	}

	if d.opts.Impact {
		d.logger.Info("performing impact sensitivity analysis", "variables", len(ImpactVariables), "multipliers", len(Multipliers))
		series, points := impactPoints(original)
		if err := d.sweep(ctx, PassImpact, series, points); err != nil {
			return nil, err
		}
		report.Impact = series
		report.ImpactCorrelation = ImpactCorrelations(series)
		if err := d.sink.WriteSeries(ctx, PassImpact, series); err != nil {
			return nil, fmt.Errorf("failed to write impact series: %w", err)
		}
		if err := d.sink.WriteRows(ctx, PassImpactCorrelation, report.ImpactCorrelation); err != nil {
			return nil, fmt.Errorf("failed to write impact correlations: %w", err)
		}
	}

	if d.opts.Parameter {
		d.logger.Info("performing parameter sensitivity analysis", "variables", len(ParameterVariables))
		series, points := parameterPoints(original)
		if err := d.sweep(ctx, PassParameter, series, points); err != nil {
			return nil, err
		}
		report.Parameter = series
		if err := d.sink.WriteSeries(ctx, PassParameter, series); err != nil {
			return nil, fmt.Errorf("failed to write parameter series: %w", err)
		}
	}

	return report, nil
}

// sweep runs every point concurrently and stores each trial at its own
// position in series.
func (d *Driver) sweep(ctx context.Context, pass string, series []Series, points []point) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for _, p := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := d.sim.Run(gctx, p.scenario)
			if err != nil {
				return fmt.Errorf("%s sweep %s=%v: %w", pass, series[p.series].Label, p.x, err)
			}
			series[p.series].Trials[p.index] = res.Trial

			v := res.Trial.Values()
			d.trials.Log(logging.TrialRecord{
				RunID:    d.runID,
				Pass:     pass,
				Label:    series[p.series].Label,
				X:        p.x,
				Seed:     p.scenario.Seed,
				Outcome:  v[:],
				Duration: time.Since(start).String(),
			})
			d.logger.Debug("sweep trial done", "pass", pass, "label", series[p.series].Label, "x", p.x)
			return nil
		})
	}
	return g.Wait()
}
