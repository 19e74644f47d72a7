package agent

import (
	"math"

	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// Env is the read-only neighborhood view an agent's rules consult while
// staging. Implementations must only expose live (committed) state.
type Env interface {
	// PercentConnectedMinority returns the fraction of a's neighbors that are
	// minority agents, counting only unconcealed ones when unconcealedOnly is
	// set. It returns 0 for an isolated agent.
	PercentConnectedMinority(a *Agent, unconcealedOnly bool) float64

	// LocalAvg returns the mean of attr across a's neighbors, 0 when isolated.
	LocalAvg(a *Agent, attr Attribute) float64

	// Degree returns the number of a's neighbors.
	Degree(a *Agent) int
}

// Impacts are the causal coefficients of the depression model. They are the
// parameters varied by the impact sensitivity sweep.
type Impacts struct {
	SupportDepression      float64 `json:"support_depression" yaml:"support_depression"`
	ConcealDiscriminate    float64 `json:"conceal_discriminate" yaml:"conceal_discriminate"`
	DiscriminateConceal    float64 `json:"discriminate_conceal" yaml:"discriminate_conceal"`
	DiscriminateDepression float64 `json:"discriminate_depression" yaml:"discriminate_depression"`
	ConcealDepression      float64 `json:"conceal_depression" yaml:"conceal_depression"`
}

// DefaultImpacts returns the default causal coefficients.
func DefaultImpacts() Impacts {
	return Impacts{
		SupportDepression:      constants.DefaultSupportDepressionImpact,
		ConcealDiscriminate:    constants.DefaultConcealDiscriminateImpact,
		DiscriminateConceal:    constants.DefaultDiscriminateConcealImpact,
		DiscriminateDepression: constants.DefaultDiscriminateDepressionImpact,
		ConcealDepression:      constants.DefaultConcealDepressionImpact,
	}
}

// StepImpacts are the per-step coefficients passed to every network update.
type StepImpacts struct {
	// Time is the per-step recovery of depression and the rate at which the
	// policy score follows the network attitude.
	Time float64 `json:"time" yaml:"time"`
	// Coach is the per-step relief for agents with a coach.
	Coach float64 `json:"coach" yaml:"coach"`
	// Past pulls depression toward the agent's running mean.
	Past float64 `json:"past" yaml:"past"`
	// Social pulls depression toward the neighborhood mean.
	Social float64 `json:"social" yaml:"social"`
}

// DefaultStepImpacts returns the documented default step impacts.
func DefaultStepImpacts() StepImpacts {
	return StepImpacts{
		Time:   constants.DefaultTimeImpact,
		Coach:  constants.DefaultCoachImpact,
		Past:   constants.DefaultPastImpact,
		Social: constants.DefaultSocialImpact,
	}
}

// Tick is the network-wide context of one timestep. It is computed once
// before any agent stages and never changes during the step.
type Tick struct {
	Time            int
	PolicyScore     float64
	NetworkAttitude float64
	Impacts         Impacts
	Step            StepImpacts
}

// Rules is the closed set of update rules for one agent variant. Every
// variant implements every rule; rules that do not apply to a variant are
// explicit no-ops. Rules read the agent's staged state and write to it.
type Rules interface {
	UpdateAttitude(a *Agent, env Env, tick Tick)
	UpdateSupport(a *Agent, env Env, tick Tick)
	UpdateDiscrimination(a *Agent, env Env, tick Tick)
	UpdateConcealment(a *Agent, env Env, tick Tick)
	UpdateDepression(a *Agent, env Env, tick Tick)
}

// RulesFor returns the rules of the given kind.
func RulesFor(k Kind) Rules {
	if k == Minority {
		return MinorityRules{}
	}
	return NonMinorityRules{}
}

// NonMinorityRules update agents outside the minority.
type NonMinorityRules struct{}

// UpdateAttitude shifts the agent's baseline attitude by the share of
// unconcealed minority neighbors: down for discriminatory agents, up otherwise.
func (NonMinorityRules) UpdateAttitude(a *Agent, env Env, _ Tick) {
	delta := constants.AttitudeSwing * env.PercentConnectedMinority(a, true)
	if a.discriminatory {
		a.next.Attitude = a.baseAttitude - delta
	} else {
		a.next.Attitude = a.baseAttitude + delta
	}
}

// UpdateSupport is a no-op: non-minority agents have full support.
func (NonMinorityRules) UpdateSupport(*Agent, Env, Tick) {}

// UpdateDiscrimination is a no-op: non-minority agents are not discriminated against.
func (NonMinorityRules) UpdateDiscrimination(*Agent, Env, Tick) {}

// UpdateConcealment is a no-op: concealment is undefined outside the minority.
func (NonMinorityRules) UpdateConcealment(*Agent, Env, Tick) {}

// UpdateDepression applies the shared depression model.
func (NonMinorityRules) UpdateDepression(a *Agent, env Env, tick Tick) {
	updateDepression(a, env, tick)
}

// MinorityRules update minority agents.
type MinorityRules struct{}

// UpdateAttitude is a no-op: minority agents accept one another.
func (MinorityRules) UpdateAttitude(*Agent, Env, Tick) {}

// UpdateSupport sets support to the share of minority neighbors scaled by
// the network attitude. A hostile network gives negative support.
func (MinorityRules) UpdateSupport(a *Agent, env Env, tick Tick) {
	a.next.Support = env.PercentConnectedMinority(a, false) * tick.NetworkAttitude
}

// UpdateDiscrimination derives discrimination from policy strength and the
// neighborhood attitude. Concealed agents experience it doubled.
func (MinorityRules) UpdateDiscrimination(a *Agent, env Env, tick Tick) {
	avgAttitude := env.LocalAvg(a, AttrAttitude)

	concealment := 1.0
	if a.next.Concealed {
		concealment = constants.ConcealedDiscriminationFactor
	}

	d := concealment * (1 - (tick.PolicyScore/constants.MaxPolicyScore + avgAttitude))
	a.next.Discrimination = math.Max(0, d)
}

// UpdateConcealment recomputes the concealment probability and draws the
// agent's concealment for the step. Concealment is not sticky.
func (MinorityRules) UpdateConcealment(a *Agent, _ Env, tick Tick) {
	a.next.ProbConceal = concealProbability(a.next.Discrimination, a.next.Support, tick.PolicyScore)
	a.next.Concealed = a.rng.Float64() < a.next.ProbConceal
}

// UpdateDepression applies the shared depression model.
func (MinorityRules) UpdateDepression(a *Agent, env Env, tick Tick) {
	updateDepression(a, env, tick)
}

// concealProbability is discrimination / (support * policy / MaxPolicyScore) / ConcealScale.
// A policy score of zero is treated as one. A support term at or below zero
// yields 0.
func concealProbability(discrimination, support, policyScore float64) float64 {
	policy := math.Max(policyScore, 1)
	denom := support * policy / constants.MaxPolicyScore
	if denom <= 0 {
		return 0
	}
	return discrimination / denom / constants.ConcealScale
}

func updateDepression(a *Agent, env Env, tick Tick) {
	s := a.next
	im := tick.Impacts
	step := tick.Step

	concealed := 0.0
	if s.Concealed {
		concealed = 1
	}

	pressure := im.DiscriminateDepression*s.Discrimination +
		im.ConcealDepression*concealed +
		im.ConcealDiscriminate*concealed*s.Discrimination +
		im.DiscriminateConceal*s.Discrimination*math.Min(s.ProbConceal, 1) -
		im.SupportDepression*s.Support

	var social float64
	if env.Degree(a) > 0 {
		social = step.Social * (env.LocalAvg(a, AttrDepression) - a.state.Depression)
	}
	past := step.Past * (a.pastDepression - a.state.Depression)

	var coach float64
	if a.hasCoach {
		coach = step.Coach
	}

	a.next.Depression = clamp01(a.state.Depression + pressure + social + past - coach - step.Time)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
