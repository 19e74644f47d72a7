package sensitivity

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/network"
)

// PrevalenceLabel labels the discrimination prevalence row of the odds
// ratio pass.
const PrevalenceLabel = "Minority_Discrimination_Prevalence"

// oddsTest compares depression odds between two subgroups that differ in
// one factor. The ratio is first / second.
type oddsTest struct {
	label  string
	first  network.OddsQuery
	second network.OddsQuery
}

// baselineOdds is the query every odds test starts from before toggling
// its own factor.
var baselineOdds = network.OddsQuery{Minority: network.With, Support: network.Irrelevant}

var oddsTests = []oddsTest{
	{
		label:  "Minority_Depress",
		first:  withMinority(baselineOdds, network.With),
		second: withMinority(baselineOdds, network.Without),
	},
	{
		label:  "Support_Depress",
		first:  withSupport(baselineOdds, network.Without),
		second: withSupport(baselineOdds, network.With),
	},
	{
		label:  "Density_Depress",
		first:  withDense(baselineOdds, true),
		second: withDense(baselineOdds, false),
	},
}

func withMinority(q network.OddsQuery, f network.Filter) network.OddsQuery {
	q.Minority = f
	return q
}

func withSupport(q network.OddsQuery, f network.Filter) network.OddsQuery {
	q.Support = f
	return q
}

func withDense(q network.OddsQuery, dense bool) network.OddsQuery {
	q.Dense = dense
	return q
}

// OddsRatios computes the discrimination prevalence followed by the
// minority, support and density depression odds ratios of n. A ratio whose
// second subgroup has zero odds is 0.
func OddsRatios(n *network.Network) []Row {
	rows := make([]Row, 0, len(oddsTests)+1)
	rows = append(rows, Row{Label: PrevalenceLabel, Value: n.PercentAttr(agent.FlagDiscriminatory)})

	for _, test := range oddsTests {
		first := n.DepressOdds(test.first)
		second := n.DepressOdds(test.second)
		ratio := 0.0
		if second != 0 {
			ratio = first / second
		}
		rows = append(rows, Row{Label: test.label, Value: ratio})
	}
	return rows
}

// Correlation is one regression test: the Pearson correlation of two
// minority-agent attributes among unconcealed agents, concealed agents and
// all minority agents.
type Correlation struct {
	Label       string  `json:"label"`
	Unconcealed float64 `json:"unconcealed"`
	Concealed   float64 `json:"concealed"`
	Overall     float64 `json:"overall"`
}

// Rows flattens the correlation into one row per view.
func (c Correlation) Rows() []Row {
	return []Row{
		{Label: c.Label + ":Unconcealed", Value: c.Unconcealed},
		{Label: c.Label + ":Concealed", Value: c.Concealed},
		{Label: c.Label + ":Overall", Value: c.Overall},
	}
}

type regressionTest struct {
	label string
	x, y  agent.Attribute
}

// Concealment is measured by the concealment probability.
var regressionTests = []regressionTest{
	{"Support_vs_Concealment", agent.AttrSupport, agent.AttrProbConceal},
	{"Concealment_vs_Discrimination", agent.AttrProbConceal, agent.AttrDiscrimination},
	{"Discrimination_vs_Depression", agent.AttrDiscrimination, agent.AttrDepression},
	{"Concealment_vs_Depression", agent.AttrProbConceal, agent.AttrDepression},
}

// Regressions correlates attribute pairs across the minority agents of n.
func Regressions(n *network.Network) []Correlation {
	var unconcealed, concealed []*agent.Agent
	for _, a := range n.MinorityAgents() {
		if a.State().Concealed {
			concealed = append(concealed, a)
		} else {
			unconcealed = append(unconcealed, a)
		}
	}
	all := append(append([]*agent.Agent(nil), unconcealed...), concealed...)

	out := make([]Correlation, 0, len(regressionTests))
	for _, test := range regressionTests {
		out = append(out, Correlation{
			Label:       test.label,
			Unconcealed: pearson(column(unconcealed, test.x), column(unconcealed, test.y)),
			Concealed:   pearson(column(concealed, test.x), column(concealed, test.y)),
			Overall:     pearson(column(all, test.x), column(all, test.y)),
		})
	}
	return out
}

func column(agents []*agent.Agent, attr agent.Attribute) stats.Float64Data {
	out := make(stats.Float64Data, len(agents))
	for i, a := range agents {
		out[i] = attr.Value(a.State())
	}
	return out
}

// pearson returns the correlation of x and y, or 0 when it is undefined.
func pearson(x, y []float64) float64 {
	r, err := stats.Pearson(x, y)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
