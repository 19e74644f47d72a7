package agent

import (
	"fmt"

	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// Attribute selects one tracked numeric field of an agent's state.
type Attribute int

const (
	AttrAttitude Attribute = iota
	AttrSupport
	AttrDiscrimination
	AttrDepression
	AttrProbConceal
)

// Value returns the selected field of s.
func (a Attribute) Value(s State) float64 {
	switch a {
	case AttrAttitude:
		return s.Attitude
	case AttrSupport:
		return s.Support
	case AttrDiscrimination:
		return s.Discrimination
	case AttrDepression:
		return s.Depression
	case AttrProbConceal:
		return s.ProbConceal
	default:
		return 0
	}
}

func (a Attribute) String() string {
	switch a {
	case AttrAttitude:
		return "attitude"
	case AttrSupport:
		return "support"
	case AttrDiscrimination:
		return "discrimination"
	case AttrDepression:
		return "depression"
	case AttrProbConceal:
		return "prob_conceal"
	default:
		return fmt.Sprintf("Attribute(%d)", int(a))
	}
}

// Flag is a boolean or threshold predicate over an agent, used for
// population summaries.
type Flag int

const (
	// FlagDepressed holds when depression is at or above DepressedThreshold.
	FlagDepressed Flag = iota
	// FlagConcealed holds when the agent is currently concealed.
	FlagConcealed
	// FlagDiscriminatory holds for agents assigned the discriminatory flag.
	FlagDiscriminatory
	// FlagHighSupport holds when support is at or above HighSupportThreshold.
	FlagHighSupport
)

// Holds reports whether the flag is true for a.
func (f Flag) Holds(a *Agent) bool {
	switch f {
	case FlagDepressed:
		return a.state.Depression >= constants.DepressedThreshold
	case FlagConcealed:
		return a.state.Concealed
	case FlagDiscriminatory:
		return a.discriminatory
	case FlagHighSupport:
		return a.state.Support >= constants.HighSupportThreshold
	default:
		return false
	}
}

func (f Flag) String() string {
	switch f {
	case FlagDepressed:
		return "depressed"
	case FlagConcealed:
		return "concealed"
	case FlagDiscriminatory:
		return "discriminatory"
	case FlagHighSupport:
		return "high_support"
	default:
		return fmt.Sprintf("Flag(%d)", int(f))
	}
}
