package network

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

func TestParams_Validate(t *testing.T) {
	valid := Params{NodeCount: 4, P: 0.5, PercentMinority: 0.1, TimeSpan: 1}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"too few nodes", func(p *Params) { p.NodeCount = constants.MinNodeCount - 1 }},
		{"negative p", func(p *Params) { p.P = -0.1 }},
		{"p above one", func(p *Params) { p.P = 1.1 }},
		{"nan p", func(p *Params) { p.P = math.NaN() }},
		{"nan minority", func(p *Params) { p.PercentMinority = math.NaN() }},
		{"negative time span", func(p *Params) { p.TimeSpan = -1 }},
		{"coach rate above one", func(p *Params) { p.CoachRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}

func TestBuild_RejectsInvalidParams(t *testing.T) {
	n, err := ERBuilder{}.Build(BuildRequest{Params: Params{NodeCount: 3, P: 0.5}})
	assert.Nil(t, n)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestBuild_Population(t *testing.T) {
	req := testRequest(12)
	n, err := ERBuilder{}.Build(req)
	require.NoError(t, err)

	require.Equal(t, req.Params.NodeCount, n.NumAgents())
	for i, a := range n.Agents() {
		assert.Equal(t, int64(i), a.ID())
		assert.Equal(t, i < 18, a.IsMinority(), "agent %d", i)
	}
	assert.InDelta(t, 0.3, n.PercentMinority(), 1e-12)
	assert.GreaterOrEqual(t, n.PolicyScore(), 0.0)
	assert.Less(t, n.PolicyScore(), constants.MaxPolicyScore)
}

func TestBuild_MinorityClamped(t *testing.T) {
	req := testRequest(12)
	req.Params.PercentMinority = 1.7
	n, err := ERBuilder{}.Build(req)
	require.NoError(t, err)
	assert.Equal(t, 1.0, n.PercentMinority())

	req.Params.PercentMinority = -1
	n, err = ERBuilder{}.Build(req)
	require.NoError(t, err)
	assert.Zero(t, n.PercentMinority())
}

func TestBuild_EdgeProbabilityExtremes(t *testing.T) {
	req := testRequest(4)
	req.Params.NodeCount = 15

	req.Params.P = 0
	empty, err := ERBuilder{}.Build(req)
	require.NoError(t, err)
	assert.Equal(t, 15, empty.NumAgents())
	assert.Zero(t, empty.NumEdges())
	assert.Zero(t, empty.Density())

	req.Params.P = 1
	full, err := ERBuilder{}.Build(req)
	require.NoError(t, err)
	assert.Equal(t, 15*14/2, full.NumEdges())
	assert.Equal(t, 1.0, full.Density())
}

func TestBuild_Reproducible(t *testing.T) {
	a, err := ERBuilder{}.Build(testRequest(77))
	require.NoError(t, err)
	b, err := ERBuilder{}.Build(testRequest(77))
	require.NoError(t, err)

	assert.Equal(t, a.NumEdges(), b.NumEdges())
	assert.Equal(t, a.PolicyScore(), b.PolicyScore())
	if diff := cmp.Diff(snapshot(a), snapshot(b)); diff != "" {
		t.Errorf("same request built different populations (-a +b):\n%s", diff)
	}
	for _, x := range a.Agents() {
		y, _ := b.Agent(x.ID())
		assert.Equal(t, x.Discriminatory(), y.Discriminatory())
		assert.Equal(t, len(a.Neighbors(x)), len(b.Neighbors(y)))
	}
}

func TestBuild_FixedPolicyScore(t *testing.T) {
	req := testRequest(5)
	req.Initial = agent.Initial{PolicyScore: agent.Float(42)}
	n, err := ERBuilder{}.Build(req)
	require.NoError(t, err)
	assert.Equal(t, 42.0, n.PolicyScore())
}

type failingGenerator struct{}

func (failingGenerator) Generate(int, float64, uint64) (graph.Undirected, error) {
	return nil, errors.New("no topology")
}

type emptyGenerator struct{}

func (emptyGenerator) Generate(int, float64, uint64) (graph.Undirected, error) {
	return GnpGenerator{}.Generate(2, 0, 0)
}

func TestBuild_GeneratorErrors(t *testing.T) {
	_, err := ERBuilder{Generator: failingGenerator{}}.Build(testRequest(1))
	assert.ErrorContains(t, err, "no topology")

	_, err = ERBuilder{Generator: emptyGenerator{}}.Build(testRequest(1))
	assert.ErrorIs(t, err, ErrMembership)
}
