package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/config"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

// runOutput is the JSON shape of the run command.
type runOutput struct {
	Scenario simulation.Scenario `json:"scenario"`
	Trial    simulation.Trial    `json:"trial"`
	Network  networkStats        `json:"network"`
}

type networkStats struct {
	Agents          int     `json:"agents"`
	Edges           int     `json:"edges"`
	Density         float64 `json:"density"`
	MeanDegree      float64 `json:"mean_degree"`
	PercentMinority float64 `json:"percent_minority"`

	// Outcome shares among minority agents only.
	MinorityConcealed float64 `json:"minority_concealed"`
	MinorityDepressed float64 `json:"minority_depressed"`
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single simulation and print its outcome",
		Long: `Build a network from the configured parameters, advance it for the
configured number of timesteps and print the five outcome statistics.

Flags override the config file and environment.

Examples:
  smdsim run
  smdsim run --nodes 500 --p 0.02 --steps 48 --seed 7
  smdsim run --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := newLogger(cmd, cfg)
			runner := simulation.NewRunner(simulation.RunnerConfig{
				StageWorkers: cfg.Simulation.StageWorkers,
				Logger:       logger,
			})

			sc := cfg.Scenario()
			res, err := runner.Run(cmd.Context(), sc)
			if err != nil {
				return err
			}

			n := res.Network
			out := runOutput{
				Scenario: sc,
				Trial:    res.Trial,
				Network: networkStats{
					Agents:          n.NumAgents(),
					Edges:           n.NumEdges(),
					Density:         n.Density(),
					MeanDegree:      n.MeanDegree(),
					PercentMinority: n.PercentMinority(),

					MinorityConcealed: n.PercentAttrAmong(agent.FlagConcealed, agent.Minority),
					MinorityDepressed: n.PercentAttrAmong(agent.FlagDepressed, agent.Minority),
				},
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Scenario %q (seed %d, %d steps)\n", sc.Name, sc.Seed, sc.Params.TimeSpan)
			fmt.Fprintf(w, "Network: %d agents, %d edges, density %.4f, mean degree %.2f, %.1f%% minority\n\n",
				out.Network.Agents, out.Network.Edges, out.Network.Density, out.Network.MeanDegree, 100*out.Network.PercentMinority)
			fmt.Fprintln(w, "Outcome:")
			printTrial(w, res.Trial)
			fmt.Fprintf(w, "\nAmong minority agents: %.1f%% concealed, %.1f%% depressed\n",
				100*out.Network.MinorityConcealed, 100*out.Network.MinorityDepressed)
			return nil
		},
	}

	addScenarioFlags(cmd)
	return cmd
}

// addScenarioFlags registers the flags shared by run and sensitivity.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("seed", 0, "Random seed")
	cmd.Flags().Int("nodes", 0, "Number of agents")
	cmd.Flags().Float64("p", 0, "Edge probability")
	cmd.Flags().Float64("minority", 0, "Fraction of minority agents")
	cmd.Flags().Int("steps", 0, "Number of timesteps")
	cmd.Flags().String("name", "", "Scenario name")
}

// applyRunFlags copies explicitly set flags onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.SmdConfig) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("seed") {
		cfg.Simulation.Seed, err = flags.GetUint64("seed")
		if err != nil {
			return err
		}
	}
	if flags.Changed("nodes") {
		cfg.Network.NodeCount, err = flags.GetInt("nodes")
		if err != nil {
			return err
		}
	}
	if flags.Changed("p") {
		cfg.Network.P, err = flags.GetFloat64("p")
		if err != nil {
			return err
		}
	}
	if flags.Changed("minority") {
		cfg.Network.PercentMinority, err = flags.GetFloat64("minority")
		if err != nil {
			return err
		}
	}
	if flags.Changed("steps") {
		cfg.Network.TimeSpan, err = flags.GetInt("steps")
		if err != nil {
			return err
		}
	}
	if flags.Changed("name") {
		cfg.Simulation.Name, _ = flags.GetString("name")
	}
	return nil
}
