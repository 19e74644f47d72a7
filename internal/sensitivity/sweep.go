package sensitivity

import (
	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

// Multipliers are the factors the impact sweep scales each parameter by.
var Multipliers = []float64{0.5, 1, 2, 3, 4, 5, 10}

// Variable is one swept quantity: how to read its baseline value and how to
// apply a new value to a scenario.
type Variable struct {
	Label string
	Get   func(simulation.Scenario) float64
	Set   func(*simulation.Scenario, float64)
}

// ImpactVariables are the parameters scaled by the impact sweep, in report
// order.
var ImpactVariables = []Variable{
	{
		Label: "Minority_Percentage",
		Get:   func(s simulation.Scenario) float64 { return s.Params.PercentMinority },
		Set:   func(s *simulation.Scenario, v float64) { s.Params.PercentMinority = v },
	},
	{
		Label: "SupportDepression_Impact",
		Get:   func(s simulation.Scenario) float64 { return s.Impacts.SupportDepression },
		Set:   func(s *simulation.Scenario, v float64) { s.Impacts.SupportDepression = v },
	},
	{
		Label: "ConcealDiscrimination_Impact",
		Get:   func(s simulation.Scenario) float64 { return s.Impacts.ConcealDiscriminate },
		Set:   func(s *simulation.Scenario, v float64) { s.Impacts.ConcealDiscriminate = v },
	},
	{
		Label: "DiscriminateConceal_Impact",
		Get:   func(s simulation.Scenario) float64 { return s.Impacts.DiscriminateConceal },
		Set:   func(s *simulation.Scenario, v float64) { s.Impacts.DiscriminateConceal = v },
	},
	{
		Label: "DiscriminationDepression_Impact",
		Get:   func(s simulation.Scenario) float64 { return s.Impacts.DiscriminateDepression },
		Set:   func(s *simulation.Scenario, v float64) { s.Impacts.DiscriminateDepression = v },
	},
	{
		Label: "ConcealDepression_Impact",
		Get:   func(s simulation.Scenario) float64 { return s.Impacts.ConcealDepression },
		Set:   func(s *simulation.Scenario, v float64) { s.Impacts.ConcealDepression = v },
	},
}

var unitRange = []float64{0, 0.25, 0.5, 0.75, 1}

// ParameterSweep is one initial state variable and the fixed values it is
// forced to across the population.
type ParameterSweep struct {
	Variable
	Values []float64
}

// ParameterVariables are the initial values swept by the parameter pass, in
// report order.
var ParameterVariables = []ParameterSweep{
	{
		Variable: Variable{
			Label: "Attitude",
			Set:   func(s *simulation.Scenario, v float64) { s.Initial.Attitude = agent.Float(v) },
		},
		Values: []float64{-1, -0.5, 0, 0.5, 1},
	},
	{
		Variable: Variable{
			Label: "Support",
			Set:   func(s *simulation.Scenario, v float64) { s.Initial.Support = agent.Float(v) },
		},
		Values: unitRange,
	},
	{
		Variable: Variable{
			Label: "Discrimination",
			Set:   func(s *simulation.Scenario, v float64) { s.Initial.Discrimination = agent.Float(v) },
		},
		Values: unitRange,
	},
	{
		Variable: Variable{
			Label: "Conceal",
			Set:   func(s *simulation.Scenario, v float64) { s.Initial.Conceal = agent.Float(v) },
		},
		Values: unitRange,
	},
	{
		Variable: Variable{
			Label: "Depression",
			Set:   func(s *simulation.Scenario, v float64) { s.Initial.Depression = agent.Float(v) },
		},
		Values: unitRange,
	},
}

// point is one trial of a sweep: the scenario to run and where its result
// belongs.
type point struct {
	series, index int
	x             float64
	scenario      simulation.Scenario
}

// impactPoints lays out every trial of the impact sweep. Each trial starts
// from the original scenario with only one parameter scaled.
func impactPoints(original simulation.Scenario) ([]Series, []point) {
	series := make([]Series, len(ImpactVariables))
	var points []point
	for i, v := range ImpactVariables {
		base := v.Get(original)
		series[i] = Series{
			Label:  v.Label,
			X:      make([]float64, len(Multipliers)),
			Trials: make([]simulation.Trial, len(Multipliers)),
		}
		for j, m := range Multipliers {
			sc := original
			x := base * m
			v.Set(&sc, x)
			series[i].X[j] = x
			points = append(points, point{series: i, index: j, x: x, scenario: sc})
		}
	}
	return series, points
}

// parameterPoints lays out every trial of the parameter sweep. Each trial
// starts from the original scenario with only one initial value forced.
func parameterPoints(original simulation.Scenario) ([]Series, []point) {
	series := make([]Series, len(ParameterVariables))
	var points []point
	for i, v := range ParameterVariables {
		series[i] = Series{
			Label:  v.Label,
			X:      append([]float64(nil), v.Values...),
			Trials: make([]simulation.Trial, len(v.Values)),
		}
		for j, x := range v.Values {
			sc := original
			v.Set(&sc, x)
			points = append(points, point{series: i, index: j, x: x, scenario: sc})
		}
	}
	return series, points
}

// ImpactCorrelations correlates each impact series' swept values with the
// resulting depression and concealment.
func ImpactCorrelations(series []Series) []Row {
	rows := make([]Row, 0, 2*len(series))
	for _, s := range series {
		rows = append(rows,
			Row{Label: s.Label + " vs. Depression Correlation", Value: pearson(s.X, s.Outcome(0))},
			Row{Label: s.Label + " vs. Concealment Correlation", Value: pearson(s.X, s.Outcome(1))},
		)
	}
	return rows
}
