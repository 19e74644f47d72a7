package network

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// UpdateAgents advances every agent by one timestep.
//
// The update is synchronous. The tick context (policy score, network
// attitude) is fixed first; then every agent stages its next state from the
// live state of itself and its neighbors; only after all agents have staged
// are the staged values committed. An agent therefore never reads a value
// committed during the same step, whatever order agents are visited in.
// The policy score follows the committed network attitude afterwards.
func (n *Network) UpdateAgents(ctx context.Context, time int, step agent.StepImpacts) error {
	tick := n.Tick(time, step)

	if err := n.stageAll(ctx, tick, n.order); err != nil {
		return fmt.Errorf("update agents at t=%d: %w", time, err)
	}
	n.commitAll(time, n.order)
	n.UpdatePolicy(step)

	n.logger.Debug("step committed",
		"time", time,
		"policy", n.policyScore,
		"attitude", tick.NetworkAttitude,
	)
	return nil
}

// Tick snapshots the network-wide context handed to every agent this step.
func (n *Network) Tick(time int, step agent.StepImpacts) agent.Tick {
	return agent.Tick{
		Time:            time,
		PolicyScore:     n.policyScore,
		NetworkAttitude: n.NetworkAttitude(),
		Impacts:         n.impacts,
		Step:            step,
	}
}

// UpdatePolicy moves the policy score toward the network attitude at the
// step's time rate, keeping it within [0, MaxPolicyScore].
func (n *Network) UpdatePolicy(step agent.StepImpacts) {
	delta := constants.MaxPolicyScore * step.Time * n.NetworkAttitude()
	n.policyScore = clampPolicy(n.policyScore + delta)
}

// stageAll runs phase one. Staging only reads live state and writes each
// agent's own staging field, so it may fan out across goroutines.
func (n *Network) stageAll(ctx context.Context, tick agent.Tick, agents []*agent.Agent) error {
	if n.workers < 2 || len(agents) < 2 {
		for _, a := range agents {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.Stage(n, tick)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)

	chunk := (len(agents) + n.workers - 1) / n.workers
	for start := 0; start < len(agents); start += chunk {
		part := agents[start:min(start+chunk, len(agents))]
		g.Go(func() error {
			for _, a := range part {
				if err := gctx.Err(); err != nil {
					return err
				}
				a.Stage(n, tick)
			}
			return nil
		})
	}
	return g.Wait()
}

// commitAll runs phase two, the barrier between steps.
func (n *Network) commitAll(time int, agents []*agent.Agent) {
	for _, a := range agents {
		a.Commit(time)
	}
	n.support = nil
}
