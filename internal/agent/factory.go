package agent

import (
	"math"
	"math/rand/v2"

	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// factoryStream separates the factory's draws from the agents' own streams.
const factoryStream = 0x9e3779b97f4a7c15

// defaultConcealRate is the chance a minority agent starts concealed when no
// initial concealment is given.
const defaultConcealRate = 0.5

// Initial holds optional fixed initial values. A nil field means the value is
// drawn at random per agent.
type Initial struct {
	Attitude       *float64 `json:"attitude,omitempty" yaml:"attitude,omitempty"`
	Support        *float64 `json:"support,omitempty" yaml:"support,omitempty"`
	Discrimination *float64 `json:"discrimination,omitempty" yaml:"discrimination,omitempty"`
	// Conceal is the probability that a minority agent starts concealed.
	Conceal     *float64 `json:"conceal,omitempty" yaml:"conceal,omitempty"`
	Depression  *float64 `json:"depression,omitempty" yaml:"depression,omitempty"`
	PolicyScore *float64 `json:"policy_score,omitempty" yaml:"policy_score,omitempty"`
}

// Float returns a pointer to v, for filling Initial literals.
func Float(v float64) *float64 { return &v }

// Factory creates the agents of one population.
type Factory struct {
	NodeCount       int
	PercentMinority float64
	CoachRate       float64
	Initial         Initial
	Seed            uint64
}

// MinorityCount returns how many of the population's agents are minority
// agents. Agents with an index below this count are minority agents.
func (f Factory) MinorityCount() int {
	pct := math.Min(1, math.Max(0, f.PercentMinority))
	return int(math.Round(pct * float64(f.NodeCount)))
}

// Create returns the fully initialized agent for the given index. Each index
// has its own random stream and every value is always drawn, so an override
// of one attribute never shifts the draws of another.
func (f Factory) Create(index int) *Agent {
	rng := rand.New(rand.NewPCG(f.Seed^factoryStream, uint64(index)))

	kind := NonMinority
	if index < f.MinorityCount() {
		kind = Minority
	}

	attitudeDraw := rng.Float64()*2 - 1
	supportDraw := rng.Float64()
	discriminationDraw := rng.Float64()
	concealDraw := rng.Float64()
	depressionDraw := rng.Float64()
	coachDraw := rng.Float64()

	s := State{
		Attitude:   attitudeDraw,
		Support:    constants.NonMinoritySupport,
		Depression: depressionDraw,
	}
	if kind == Minority {
		s.Attitude = constants.MinorityAttitude
		s.Support = supportDraw
		s.Discrimination = discriminationDraw
		s.Concealed = concealDraw < defaultConcealRate
	}

	fixed := f.Initial
	if fixed.Attitude != nil {
		s.Attitude = *fixed.Attitude
	}
	if fixed.Depression != nil {
		s.Depression = *fixed.Depression
	}
	if kind == Minority {
		if fixed.Support != nil {
			s.Support = *fixed.Support
		}
		if fixed.Discrimination != nil {
			s.Discrimination = *fixed.Discrimination
		}
		if fixed.Conceal != nil {
			s.Concealed = concealDraw < *fixed.Conceal
		}
	}

	return New(Options{
		ID:       int64(index),
		Kind:     kind,
		State:    s,
		HasCoach: coachDraw < f.CoachRate,
		Seed:     f.Seed,
	})
}
