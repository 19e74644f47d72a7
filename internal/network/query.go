package network

import (
	"github.com/montanaflynn/stats"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
)

// Neighbors returns a's neighbors ordered by ID.
func (n *Network) Neighbors(a *agent.Agent) []*agent.Agent {
	return n.neighbors[a.ID()]
}

// Degree returns the number of a's neighbors.
func (n *Network) Degree(a *agent.Agent) int {
	return len(n.neighbors[a.ID()])
}

// MeanDegree returns the average number of neighbors per agent.
func (n *Network) MeanDegree() float64 {
	if len(n.order) == 0 {
		return 0
	}
	return 2 * float64(n.edges) / float64(len(n.order))
}

// Density returns the fraction of possible ties that exist.
func (n *Network) Density() float64 {
	count := len(n.order)
	if count < 2 {
		return 0
	}
	return 2 * float64(n.edges) / float64(count*(count-1))
}

// PercentConnectedMinority returns the fraction of a's neighbors that are
// minority agents. With unconcealedOnly set, concealed minority neighbors are
// not counted. An isolated agent yields 0.
func (n *Network) PercentConnectedMinority(a *agent.Agent, unconcealedOnly bool) float64 {
	nbs := n.neighbors[a.ID()]
	if len(nbs) == 0 {
		return 0
	}
	count := 0
	for _, nb := range nbs {
		if !nb.IsMinority() {
			continue
		}
		if unconcealedOnly && nb.State().Concealed {
			continue
		}
		count++
	}
	return float64(count) / float64(len(nbs))
}

// LocalAvg returns the mean of attr across a's neighbors, or 0 when a is
// isolated.
func (n *Network) LocalAvg(a *agent.Agent, attr agent.Attribute) float64 {
	nbs := n.neighbors[a.ID()]
	if len(nbs) == 0 {
		return 0
	}
	var sum float64
	for _, nb := range nbs {
		sum += attr.Value(nb.State())
	}
	return sum / float64(len(nbs))
}

// NetworkAttitude returns the mean attitude of the whole population.
func (n *Network) NetworkAttitude() float64 {
	return n.Mean(agent.AttrAttitude, nil)
}

// Mean returns the mean of attr across the agents accepted by keep, or across
// every agent when keep is nil. An empty selection yields 0.
func (n *Network) Mean(attr agent.Attribute, keep func(*agent.Agent) bool) float64 {
	values := n.values(attr, keep)
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}

// SupportMeanStd returns the mean and population standard deviation of
// support across minority agents. The result is cached until agent state
// next changes. Without minority agents both are 0.
func (n *Network) SupportMeanStd() (mean, std float64) {
	if n.support == nil {
		values := n.values(agent.AttrSupport, (*agent.Agent).IsMinority)
		s := &supportStats{}
		if m, err := stats.Mean(values); err == nil {
			s.mean = m
		}
		if sd, err := stats.StandardDeviationPopulation(values); err == nil {
			s.std = sd
		}
		n.support = s
	}
	return n.support.mean, n.support.std
}

// PercentAttr returns the fraction of the population for which f holds, or 0
// for an empty population.
func (n *Network) PercentAttr(f agent.Flag) float64 {
	if len(n.order) == 0 {
		return 0
	}
	return float64(n.countFlag(f)) / float64(len(n.order))
}

// PercentAttrAmong returns the fraction of agents of kind k for which f
// holds, or 0 when there are no such agents.
func (n *Network) PercentAttrAmong(f agent.Flag, k agent.Kind) float64 {
	total, hits := 0, 0
	for _, a := range n.order {
		if a.Kind() != k {
			continue
		}
		total++
		if f.Holds(a) {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// PercentMinority returns the fraction of agents that are minority agents.
func (n *Network) PercentMinority() float64 {
	if len(n.order) == 0 {
		return 0
	}
	return float64(len(n.MinorityAgents())) / float64(len(n.order))
}

// MinorityAgents returns the minority agents ordered by ID.
func (n *Network) MinorityAgents() []*agent.Agent {
	return n.ofKind(agent.Minority)
}

func (n *Network) ofKind(k agent.Kind) []*agent.Agent {
	var out []*agent.Agent
	for _, a := range n.order {
		if a.Kind() == k {
			out = append(out, a)
		}
	}
	return out
}

func (n *Network) countFlag(f agent.Flag) int {
	count := 0
	for _, a := range n.order {
		if f.Holds(a) {
			count++
		}
	}
	return count
}

func (n *Network) values(attr agent.Attribute, keep func(*agent.Agent) bool) stats.Float64Data {
	values := make(stats.Float64Data, 0, len(n.order))
	for _, a := range n.order {
		if keep != nil && !keep(a) {
			continue
		}
		values = append(values, attr.Value(a.State()))
	}
	return values
}
