package network

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// ErrInvalidParams is returned when construction parameters are rejected.
var ErrInvalidParams = errors.New("invalid network parameters")

// graphStream separates topology draws from every other random stream.
const graphStream = 0xd1b54a32d192ed03

// Params are the construction parameters of an ER network.
type Params struct {
	// NodeCount is the population size. Must be at least MinNodeCount.
	NodeCount int `json:"node_count" yaml:"node_count"`

	// P is the probability that any two agents are tied. Must be in [0, 1].
	P float64 `json:"p" yaml:"p"`

	// PercentMinority is the share of minority agents, clamped to [0, 1].
	PercentMinority float64 `json:"percent_minority" yaml:"percent_minority"`

	// TimeSpan is the number of timesteps a run lasts.
	TimeSpan int `json:"time_span" yaml:"time_span"`

	// CoachRate is the chance that an agent has a coach.
	CoachRate float64 `json:"coach_rate" yaml:"coach_rate"`
}

// DefaultParams returns the default construction parameters.
func DefaultParams() Params {
	return Params{
		NodeCount:       constants.DefaultNodeCount,
		P:               constants.DefaultAttachProb,
		PercentMinority: constants.DefaultPercentMinority,
		TimeSpan:        constants.DefaultTimeSpan,
	}
}

// Validate checks the parameters without modifying them.
func (p Params) Validate() error {
	if p.NodeCount < constants.MinNodeCount {
		return fmt.Errorf("%w: node count must be at least %d, got %d", ErrInvalidParams, constants.MinNodeCount, p.NodeCount)
	}
	if math.IsNaN(p.P) || p.P < 0 || p.P > 1 {
		return fmt.Errorf("%w: p must be between 0 and 1, got %v", ErrInvalidParams, p.P)
	}
	if math.IsNaN(p.PercentMinority) {
		return fmt.Errorf("%w: percent minority is NaN", ErrInvalidParams)
	}
	if p.TimeSpan < 0 {
		return fmt.Errorf("%w: time span must be non-negative, got %d", ErrInvalidParams, p.TimeSpan)
	}
	if math.IsNaN(p.CoachRate) || p.CoachRate < 0 || p.CoachRate > 1 {
		return fmt.Errorf("%w: coach rate must be between 0 and 1, got %v", ErrInvalidParams, p.CoachRate)
	}
	return nil
}

// Normalized returns p with PercentMinority clamped to [0, 1].
func (p Params) Normalized() Params {
	p.PercentMinority = math.Min(1, math.Max(0, p.PercentMinority))
	return p
}

// GraphGenerator produces the topology of a network.
type GraphGenerator interface {
	Generate(nodeCount int, p float64, seed uint64) (graph.Undirected, error)
}

// GnpGenerator generates Erdős–Rényi G(n, p) graphs with gonum.
type GnpGenerator struct{}

// Generate returns a G(n, p) graph with nodes 0..nodeCount-1.
func (GnpGenerator) Generate(nodeCount int, p float64, seed uint64) (graph.Undirected, error) {
	g := simple.NewUndirectedGraph()
	if err := gen.Gnp(g, nodeCount, p, rand.NewPCG(seed, graphStream)); err != nil {
		return nil, fmt.Errorf("generate gnp graph: %w", err)
	}
	// Gnp adds no nodes when p is zero.
	for i := 0; i < nodeCount; i++ {
		if g.Node(int64(i)) == nil {
			g.AddNode(simple.Node(i))
		}
	}
	return g, nil
}

// ERBuilder constructs Erdős–Rényi networks.
type ERBuilder struct {
	// Generator produces the topology. Nil uses GnpGenerator.
	Generator GraphGenerator

	// Workers is passed through to the built network.
	Workers int

	// Logger is passed through to the built network.
	Logger *slog.Logger
}

// BuildRequest is everything needed to reconstruct one network exactly.
type BuildRequest struct {
	Params  Params
	Initial agent.Initial
	Impacts agent.Impacts
	Seed    uint64
}

// Build validates the request and constructs the network: the topology from
// the generator, one agent per node from the agent factory, then the
// discriminatory assignment. Invalid parameters return an error and no
// network.
func (b ERBuilder) Build(req BuildRequest) (*Network, error) {
	if err := req.Params.Validate(); err != nil {
		return nil, err
	}
	params := req.Params.Normalized()

	generator := b.Generator
	if generator == nil {
		generator = GnpGenerator{}
	}
	g, err := generator.Generate(params.NodeCount, params.P, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}

	factory := agent.Factory{
		NodeCount:       params.NodeCount,
		PercentMinority: params.PercentMinority,
		CoachRate:       params.CoachRate,
		Initial:         req.Initial,
		Seed:            req.Seed,
	}
	agents := make(map[int64]*agent.Agent, params.NodeCount)
	for i := 0; i < params.NodeCount; i++ {
		a := factory.Create(i)
		agents[a.ID()] = a
	}

	policy := rand.New(rand.NewPCG(req.Seed, networkStream^graphStream)).Float64() * constants.MaxPolicyScore
	if req.Initial.PolicyScore != nil {
		policy = *req.Initial.PolicyScore
	}

	n, err := New(g, agents, Config{
		Impacts:     req.Impacts,
		PolicyScore: policy,
		Seed:        req.Seed,
		Workers:     b.Workers,
		Logger:      b.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}
	n.ChooseDiscriminate()

	n.logger.Debug("built er network",
		"nodes", n.NumAgents(),
		"edges", n.NumEdges(),
		"minority", factory.MinorityCount(),
		"policy", n.PolicyScore(),
	)
	return n, nil
}
