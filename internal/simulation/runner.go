package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/logging"
	"github.com/embruze/SexualEqualityABM-1/internal/network"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// Generator overrides the topology generator. Nil uses gonum G(n, p).
	Generator network.GraphGenerator

	// StageWorkers bounds the goroutines staging agents within one step.
	StageWorkers int

	// Logger receives operational output. Nil discards it.
	Logger *slog.Logger
}

// Runner executes scenarios. A Runner holds no per-run state and is safe for
// concurrent use.
type Runner struct {
	builder network.ERBuilder
	logger  *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		builder: network.ERBuilder{
			Generator: cfg.Generator,
			Workers:   cfg.StageWorkers,
			Logger:    logger,
		},
		logger: logger,
	}
}

// Result is a completed run: its summary and the final network.
type Result struct {
	Trial   Trial
	Network *network.Network
}

// Build reconstructs the scenario's initial network.
func (r *Runner) Build(s Scenario) (*network.Network, error) {
	n, err := r.builder.Build(s.BuildRequest())
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return n, nil
}

// Run builds the scenario's network and advances it Params.TimeSpan steps.
func (r *Runner) Run(ctx context.Context, s Scenario) (Result, error) {
	n, err := r.Build(s)
	if err != nil {
		return Result{}, err
	}
	if err := r.Advance(ctx, n, s.Params.TimeSpan, s.Step); err != nil {
		return Result{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	trial := Summarize(n)
	r.logger.Debug("run complete", "scenario", s.Name, "seed", s.Seed, "trial", trial.String())
	return Result{Trial: trial, Network: n}, nil
}

// Advance runs steps timesteps on n.
func (r *Runner) Advance(ctx context.Context, n *network.Network, steps int, step agent.StepImpacts) error {
	for t := 0; t < steps; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.UpdateAgents(ctx, t, step); err != nil {
			return err
		}
		r.logger.Log(ctx, logging.LevelTrace, "timestep",
			"time", t,
			"policy", n.PolicyScore(),
			"depressed", n.PercentAttr(agent.FlagDepressed),
			"concealed", n.PercentAttr(agent.FlagConcealed),
		)
	}
	return nil
}
