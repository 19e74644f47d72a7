// Package network binds a social graph to its agent population and drives
// the synchronous per-timestep update across every agent. It also exposes the
// neighborhood and population queries the agent rules and the sensitivity
// analysis are built on.
package network

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// ErrMembership is returned when a graph's node set and an agent set differ.
var ErrMembership = errors.New("graph nodes and agents do not match")

// networkStream separates the network's draws from the agents' own streams.
const networkStream = 0x2545f4914f6cdd1d

// Config holds the tunables of a network.
type Config struct {
	// Impacts are the causal coefficients handed to every agent update.
	Impacts agent.Impacts

	// PolicyScore is the initial policy score, clamped to [0, MaxPolicyScore].
	PolicyScore float64

	// Seed selects the network's random stream (discriminatory assignment).
	Seed uint64

	// Workers bounds the goroutines used to stage agents. Values below 2
	// stage sequentially.
	Workers int

	// Logger receives debug output. Nil discards it.
	Logger *slog.Logger
}

// Network is a social graph with one agent per node. It is not safe for
// concurrent use; independent trials each build their own Network.
type Network struct {
	graph     graph.Undirected
	agents    map[int64]*agent.Agent
	order     []*agent.Agent
	neighbors map[int64][]*agent.Agent
	edges     int

	policyScore float64
	impacts     agent.Impacts
	rng         *rand.Rand
	workers     int
	logger      *slog.Logger

	discriminateChosen bool
	support            *supportStats
}

type supportStats struct {
	mean float64
	std  float64
}

// New binds g and agents into a network. Every node of g must have exactly
// one agent with the same ID and vice versa.
func New(g graph.Undirected, agents map[int64]*agent.Agent, cfg Config) (*Network, error) {
	if g == nil {
		return nil, fmt.Errorf("bind network: %w: nil graph", ErrMembership)
	}

	nodes := graph.NodesOf(g.Nodes())
	if len(nodes) != len(agents) {
		return nil, fmt.Errorf("bind network: %w: %d nodes, %d agents", ErrMembership, len(nodes), len(agents))
	}

	order := make([]*agent.Agent, 0, len(nodes))
	for _, node := range nodes {
		a, ok := agents[node.ID()]
		if !ok {
			return nil, fmt.Errorf("bind network: %w: node %d has no agent", ErrMembership, node.ID())
		}
		if a.ID() != node.ID() {
			return nil, fmt.Errorf("bind network: %w: agent %d keyed as %d", ErrMembership, a.ID(), node.ID())
		}
		order = append(order, a)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].ID() < order[j].ID() })

	// gonum iterates neighbors in map order; cache them sorted so every sum
	// over a neighborhood is taken in the same order on every run.
	neighbors := make(map[int64][]*agent.Agent, len(order))
	degreeSum := 0
	for _, a := range order {
		adj := graph.NodesOf(g.From(a.ID()))
		list := make([]*agent.Agent, 0, len(adj))
		for _, nb := range adj {
			if nb.ID() == a.ID() {
				continue
			}
			list = append(list, agents[nb.ID()])
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID() < list[j].ID() })
		neighbors[a.ID()] = list
		degreeSum += len(list)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	n := &Network{
		graph:       g,
		agents:      agents,
		order:       order,
		neighbors:   neighbors,
		edges:       degreeSum / 2,
		policyScore: clampPolicy(cfg.PolicyScore),
		impacts:     cfg.Impacts,
		rng:         rand.New(rand.NewPCG(cfg.Seed, networkStream)),
		workers:     cfg.Workers,
		logger:      logger,
	}
	return n, nil
}

// Graph returns the underlying topology.
func (n *Network) Graph() graph.Undirected { return n.graph }

// Agent returns the agent with the given ID.
func (n *Network) Agent(id int64) (*agent.Agent, bool) {
	a, ok := n.agents[id]
	return a, ok
}

// Agents returns every agent ordered by ID.
func (n *Network) Agents() []*agent.Agent {
	out := make([]*agent.Agent, len(n.order))
	copy(out, n.order)
	return out
}

// NumAgents returns the population size.
func (n *Network) NumAgents() int { return len(n.order) }

// NumEdges returns the number of social ties.
func (n *Network) NumEdges() int { return n.edges }

// PolicyScore returns the current policy score.
func (n *Network) PolicyScore() float64 { return n.policyScore }

// SetPolicyScore sets the policy score, clamped to [0, MaxPolicyScore].
func (n *Network) SetPolicyScore(v float64) { n.policyScore = clampPolicy(v) }

// Impacts returns the causal coefficients used by agent updates.
func (n *Network) Impacts() agent.Impacts { return n.impacts }

// ChooseDiscriminate assigns the fixed discriminatory flag to non-minority
// agents at the DiscriminateRate base rate. Minority agents are never
// discriminatory. Only the first call has any effect; it returns the number
// of agents flagged.
func (n *Network) ChooseDiscriminate() int {
	if n.discriminateChosen {
		return n.countFlag(agent.FlagDiscriminatory)
	}
	n.discriminateChosen = true

	count := 0
	for _, a := range n.order {
		if a.IsMinority() {
			a.SetDiscriminatory(false)
			continue
		}
		v := n.rng.Float64() < constants.DiscriminateRate
		a.SetDiscriminatory(v)
		if v {
			count++
		}
	}
	n.logger.Debug("assigned discriminatory agents", "count", count, "population", len(n.order))
	return count
}

func clampPolicy(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(constants.MaxPolicyScore, math.Max(0, v))
}
