package simulation

import (
	"fmt"

	"github.com/embruze/SexualEqualityABM-1/internal/agent"
	"github.com/embruze/SexualEqualityABM-1/internal/network"
)

// Scenario defines a complete, reproducible simulation run.
type Scenario struct {
	Name    string            `json:"name,omitempty" yaml:"name,omitempty"`
	Params  network.Params    `json:"params" yaml:"params"`
	Initial agent.Initial     `json:"initial" yaml:"initial"`
	Impacts agent.Impacts     `json:"impacts" yaml:"impacts"`
	Step    agent.StepImpacts `json:"step" yaml:"step"`
	Seed    uint64            `json:"seed" yaml:"seed"`
}

// DefaultScenario returns a scenario with default parameters and impacts.
func DefaultScenario() Scenario {
	return Scenario{
		Name:    "default",
		Params:  network.DefaultParams(),
		Impacts: agent.DefaultImpacts(),
		Step:    agent.DefaultStepImpacts(),
	}
}

// BuildRequest returns the request that reconstructs this scenario's network.
func (s Scenario) BuildRequest() network.BuildRequest {
	return network.BuildRequest{
		Params:  s.Params,
		Initial: s.Initial,
		Impacts: s.Impacts,
		Seed:    s.Seed,
	}
}

// Trial is the summary of one completed run.
type Trial struct {
	// Depressed is the fraction of the population that is depressed.
	Depressed float64 `json:"depressed"`
	// Concealed is the fraction of the population that is concealed.
	Concealed float64 `json:"concealed"`
	// Discriminating is the fraction of the population that is discriminatory.
	// The flag is assigned once when the network is built and never changes,
	// so this only varies with the population itself (seed, node count,
	// minority share). Impact series other than Minority_Percentage are flat.
	Discriminating float64 `json:"discriminating"`
	// SupportMean is the mean support of minority agents. It is negative when
	// the network attitude is.
	SupportMean float64 `json:"support_mean"`
	// PolicyScore is the final policy score.
	PolicyScore float64 `json:"policy_score"`
}

// Outcome names the five trial metrics, in Values order.
var Outcome = [5]string{"Depression", "Concealment", "Discrimination", "Support", "Policy Score"}

// Values returns the trial metrics in their fixed order.
func (t Trial) Values() [5]float64 {
	return [5]float64{t.Depressed, t.Concealed, t.Discriminating, t.SupportMean, t.PolicyScore}
}

func (t Trial) String() string {
	return fmt.Sprintf("Trial{depressed=%.4f concealed=%.4f discriminating=%.4f support=%.4f policy=%.2f}",
		t.Depressed, t.Concealed, t.Discriminating, t.SupportMean, t.PolicyScore)
}

// Summarize computes the trial summary of a network's current state.
func Summarize(n *network.Network) Trial {
	mean, _ := n.SupportMeanStd()
	return Trial{
		Depressed:      n.PercentAttr(agent.FlagDepressed),
		Concealed:      n.PercentAttr(agent.FlagConcealed),
		Discriminating: n.PercentAttr(agent.FlagDiscriminatory),
		SupportMean:    mean,
		PolicyScore:    n.PolicyScore(),
	}
}
