package simulation

import (
	"math"
	"testing"

	"github.com/embruze/SexualEqualityABM-1/internal/constants"
	"github.com/embruze/SexualEqualityABM-1/internal/network"
)

// AssertTrialsEqual asserts that two trials match metric for metric.
func AssertTrialsEqual(t *testing.T, want, got Trial) {
	t.Helper()
	w, g := want.Values(), got.Values()
	for i := range w {
		if w[i] != g[i] {
			t.Errorf("AssertTrialsEqual: %s: want %.10f, got %.10f", Outcome[i], w[i], g[i])
		}
	}
}

// supportBound is the largest support magnitude: the network attitude never
// leaves [-1-AttitudeSwing, 1+AttitudeSwing].
const supportBound = 1 + constants.AttitudeSwing

// AssertTrialBounded asserts that every fraction in a trial is in [0, 1],
// mean support is within the support bound and the policy score is in
// [0, MaxPolicyScore].
func AssertTrialBounded(t *testing.T, tr Trial) {
	t.Helper()
	v := tr.Values()
	for i := 0; i < 3; i++ {
		if math.IsNaN(v[i]) || v[i] < 0 || v[i] > 1 {
			t.Errorf("AssertTrialBounded: %s = %.6f not in [0, 1]", Outcome[i], v[i])
		}
	}
	if math.IsNaN(tr.SupportMean) || math.Abs(tr.SupportMean) > supportBound {
		t.Errorf("AssertTrialBounded: support mean %.6f not in [-%.2f, %.2f]", tr.SupportMean, supportBound, supportBound)
	}
	if tr.PolicyScore < 0 || tr.PolicyScore > constants.MaxPolicyScore {
		t.Errorf("AssertTrialBounded: policy score %.4f not in [0, %.0f]", tr.PolicyScore, constants.MaxPolicyScore)
	}
}

// AssertAgentsBounded asserts that every agent attribute is finite and in
// its documented range.
func AssertAgentsBounded(t *testing.T, n *network.Network) {
	t.Helper()
	for _, a := range n.Agents() {
		s := a.State()
		if math.IsNaN(s.Support) || math.Abs(s.Support) > supportBound {
			t.Errorf("AssertAgentsBounded: agent %d support %.6f not in [-%.2f, %.2f]", a.ID(), s.Support, supportBound, supportBound)
		}
		if s.Depression < 0 || s.Depression > 1 {
			t.Errorf("AssertAgentsBounded: agent %d depression %.6f not in [0, 1]", a.ID(), s.Depression)
		}
		if s.ProbConceal < 0 || math.IsNaN(s.ProbConceal) {
			t.Errorf("AssertAgentsBounded: agent %d concealment probability %.6f is negative", a.ID(), s.ProbConceal)
		}
		if s.Discrimination < 0 || math.IsNaN(s.Discrimination) || math.IsInf(s.Discrimination, 0) {
			t.Errorf("AssertAgentsBounded: agent %d discrimination %.6f not a finite non-negative value", a.ID(), s.Discrimination)
		}
		if math.IsNaN(s.Attitude) || math.IsInf(s.Attitude, 0) {
			t.Errorf("AssertAgentsBounded: agent %d attitude is not finite", a.ID())
		}
	}
}

// AssertNetworksEqual asserts that two networks hold identical agent states
// and the same policy score.
func AssertNetworksEqual(t *testing.T, want, got *network.Network) {
	t.Helper()
	if want.PolicyScore() != got.PolicyScore() {
		t.Errorf("AssertNetworksEqual: policy score want %.10f, got %.10f", want.PolicyScore(), got.PolicyScore())
	}
	wa, ga := want.Agents(), got.Agents()
	if len(wa) != len(ga) {
		t.Fatalf("AssertNetworksEqual: want %d agents, got %d", len(wa), len(ga))
	}
	for i := range wa {
		if wa[i].State() != ga[i].State() {
			t.Errorf("AssertNetworksEqual: agent %d state differs:\n want %+v\n  got %+v", wa[i].ID(), wa[i].State(), ga[i].State())
		}
		if wa[i].Discriminatory() != ga[i].Discriminatory() {
			t.Errorf("AssertNetworksEqual: agent %d discriminatory differs", wa[i].ID())
		}
	}
}
