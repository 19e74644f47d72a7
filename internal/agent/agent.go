// Package agent models one simulated individual: its state, the variant
// (minority or non-minority) fixed at creation, and the per-timestep update
// rules that move it from one state to the next.
//
// Updates are two-phase. Stage computes the next state from the agent's live
// state and its neighbors' live state, writing only into a private staging
// field. Commit copies the staged state into the live state. A network calls
// Stage on every agent before calling Commit on any of them, so no agent can
// observe a value committed during the same timestep.
package agent

import (
	"fmt"
	"math/rand/v2"
)

// Kind is the minority status of an agent.
type Kind int

const (
	NonMinority Kind = iota
	Minority
)

func (k Kind) String() string {
	switch k {
	case Minority:
		return "minority"
	case NonMinority:
		return "non-minority"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is the mutable per-timestep state of an agent.
type State struct {
	Attitude       float64 `json:"attitude"`
	Support        float64 `json:"support"`
	Discrimination float64 `json:"discrimination"`
	Depression     float64 `json:"depression"`
	ProbConceal    float64 `json:"prob_conceal"`
	Concealed      bool    `json:"concealed"`
}

// Agent is a single member of the simulated population.
type Agent struct {
	id    int64
	kind  Kind
	rules Rules

	state State
	next  State

	baseAttitude   float64
	pastDepression float64
	discriminatory bool
	hasCoach       bool

	rng *rand.Rand
}

// Options configures a new agent.
type Options struct {
	ID       int64
	Kind     Kind
	State    State
	HasCoach bool

	// Seed and the agent ID together select the agent's private random
	// stream, so draws do not depend on the order agents are visited.
	Seed uint64
}

// New creates an agent with the rules of its kind.
func New(opts Options) *Agent {
	return &Agent{
		id:             opts.ID,
		kind:           opts.Kind,
		rules:          RulesFor(opts.Kind),
		state:          opts.State,
		next:           opts.State,
		baseAttitude:   opts.State.Attitude,
		pastDepression: opts.State.Depression,
		hasCoach:       opts.HasCoach,
		rng:            rand.New(rand.NewPCG(opts.Seed, uint64(opts.ID))),
	}
}

// ID returns the agent's identifier, which is also its graph node ID.
func (a *Agent) ID() int64 { return a.id }

// Kind returns the agent's minority status.
func (a *Agent) Kind() Kind { return a.kind }

// IsMinority reports whether the agent uses the minority rules.
func (a *Agent) IsMinority() bool { return a.kind == Minority }

// State returns a copy of the live state.
func (a *Agent) State() State { return a.state }

// Staged returns a copy of the staged state.
func (a *Agent) Staged() State { return a.next }

// Discriminatory reports whether the agent was assigned the discriminatory flag.
func (a *Agent) Discriminatory() bool { return a.discriminatory }

// SetDiscriminatory assigns the discriminatory flag. Only the network calls
// this, once, while it is being built.
func (a *Agent) SetDiscriminatory(v bool) { a.discriminatory = v }

// HasCoach reports whether the agent has a coach.
func (a *Agent) HasCoach() bool { return a.hasCoach }

// BaseAttitude returns the attitude the agent was created with.
func (a *Agent) BaseAttitude() float64 { return a.baseAttitude }

// PastDepression returns the running mean of committed depression values.
func (a *Agent) PastDepression() float64 { return a.pastDepression }

// Stage computes the agent's next state into the staging field. The rules run
// in a fixed order and each later rule sees the values staged by earlier ones.
// Live state, of this agent and every other, is left untouched.
func (a *Agent) Stage(env Env, tick Tick) {
	a.next = a.state
	a.rules.UpdateAttitude(a, env, tick)
	a.rules.UpdateSupport(a, env, tick)
	a.rules.UpdateDiscrimination(a, env, tick)
	a.rules.UpdateConcealment(a, env, tick)
	a.rules.UpdateDepression(a, env, tick)
}

// Commit makes the staged state live. time is the index of the step being
// committed and weights the running depression mean.
func (a *Agent) Commit(time int) {
	a.state = a.next
	if time < 0 {
		time = 0
	}
	n := float64(time + 1)
	a.pastDepression = (a.pastDepression*n + a.state.Depression) / (n + 1)
}
