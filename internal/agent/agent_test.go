package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

// fakeEnv answers neighborhood queries with fixed values.
type fakeEnv struct {
	minority    float64
	unconcealed float64
	avg         map[Attribute]float64
	degree      int
}

func (e fakeEnv) PercentConnectedMinority(_ *Agent, unconcealedOnly bool) float64 {
	if unconcealedOnly {
		return e.unconcealed
	}
	return e.minority
}

func (e fakeEnv) LocalAvg(_ *Agent, attr Attribute) float64 { return e.avg[attr] }

func (e fakeEnv) Degree(*Agent) int { return e.degree }

var isolated = fakeEnv{}

func defaultTick(policy, attitude float64) Tick {
	return Tick{
		PolicyScore:     policy,
		NetworkAttitude: attitude,
		Impacts:         DefaultImpacts(),
		Step:            DefaultStepImpacts(),
	}
}

func TestStage_LeavesLiveStateUntouched(t *testing.T) {
	start := State{Attitude: 1, Support: 0.3, Discrimination: 0.4, Depression: 0.6, ProbConceal: 0.2}
	a := New(Options{ID: 3, Kind: Minority, State: start, Seed: 9})

	env := fakeEnv{minority: 0.5, unconcealed: 0.5, avg: map[Attribute]float64{AttrAttitude: 0.2, AttrDepression: 0.1}, degree: 4}
	a.Stage(env, defaultTick(100, 0.4))

	assert.Equal(t, start, a.State(), "Stage must only write the staging field")
	assert.NotEqual(t, start, a.Staged())

	staged := a.Staged()
	a.Commit(0)
	assert.Equal(t, staged, a.State())
}

func TestCommit_RunningDepressionMean(t *testing.T) {
	a := New(Options{ID: 0, Kind: NonMinority, State: State{Depression: 0.2}})
	require.Equal(t, 0.2, a.PastDepression())

	a.next.Depression = 0.6
	a.Commit(0)
	assert.InDelta(t, 0.4, a.PastDepression(), 1e-12)

	// At t=1 the old mean carries weight two.
	a.next.Depression = 1
	a.Commit(1)
	assert.InDelta(t, (0.4*2+1)/3, a.PastDepression(), 1e-12)
}

func TestNonMinorityAttitude(t *testing.T) {
	env := fakeEnv{unconcealed: 1, minority: 1}

	tolerant := New(Options{ID: 0, Kind: NonMinority, State: State{Attitude: 0}})
	tolerant.Stage(env, defaultTick(0, 0))
	assert.InDelta(t, constants.AttitudeSwing, tolerant.Staged().Attitude, 1e-12)

	hostile := New(Options{ID: 1, Kind: NonMinority, State: State{Attitude: 0}})
	hostile.SetDiscriminatory(true)
	hostile.Stage(env, defaultTick(0, 0))
	assert.InDelta(t, -constants.AttitudeSwing, hostile.Staged().Attitude, 1e-12)

	// Concealed minority neighbors do not move attitudes.
	hidden := New(Options{ID: 2, Kind: NonMinority, State: State{Attitude: 0.3}})
	hidden.Stage(fakeEnv{minority: 1, unconcealed: 0}, defaultTick(0, 0))
	assert.InDelta(t, 0.3, hidden.Staged().Attitude, 1e-12)
}

func TestNonMinority_NoOpRules(t *testing.T) {
	start := State{Attitude: 0.1, Support: constants.NonMinoritySupport}
	a := New(Options{ID: 0, Kind: NonMinority, State: start})
	a.Stage(fakeEnv{minority: 1, unconcealed: 1, avg: map[Attribute]float64{AttrAttitude: -1}, degree: 2}, defaultTick(0, -1))

	s := a.Staged()
	assert.Equal(t, start.Support, s.Support)
	assert.Zero(t, s.Discrimination)
	assert.False(t, s.Concealed)
	assert.Zero(t, s.ProbConceal)
}

func TestMinority_AttitudeFixed(t *testing.T) {
	a := New(Options{ID: 0, Kind: Minority, State: State{Attitude: constants.MinorityAttitude}})
	a.Stage(fakeEnv{minority: 0, unconcealed: 0, degree: 3}, defaultTick(10, -1))
	assert.Equal(t, constants.MinorityAttitude, a.Staged().Attitude)
}

func TestMinority_BoundedAcrossPolicyRange(t *testing.T) {
	envs := []fakeEnv{
		isolated,
		{minority: 1, unconcealed: 1, avg: map[Attribute]float64{AttrAttitude: -1, AttrDepression: 1}, degree: 5},
		{minority: 0.5, unconcealed: 0.2, avg: map[Attribute]float64{AttrAttitude: 1, AttrDepression: 0}, degree: 2},
	}
	const eps = 1e-12
	for policy := 0.0; policy <= constants.MaxPolicyScore; policy += 52.5 {
		for _, attitude := range []float64{-1, -0.3, 0, 0.6, 1} {
			for i, env := range envs {
				a := New(Options{ID: int64(i), Kind: Minority, State: State{Attitude: 1, Support: 0.5, Discrimination: 0.5, Depression: 0.5}, Seed: 7})
				a.Stage(env, defaultTick(policy, attitude))
				s := a.Staged()

				assert.InDelta(t, env.minority*attitude, s.Support, eps)
				if attitude >= 0 {
					assert.GreaterOrEqual(t, s.Support, -eps)
					assert.LessOrEqual(t, s.Support, 1+eps)
				}
				assert.GreaterOrEqual(t, s.Discrimination, 0.0)
				assert.GreaterOrEqual(t, s.Depression, 0.0)
				assert.LessOrEqual(t, s.Depression, 1.0)
				assert.GreaterOrEqual(t, s.ProbConceal, 0.0)
			}
		}
	}
}

func TestMinority_HostileNetworkSupport(t *testing.T) {
	env := fakeEnv{minority: 0.5, unconcealed: 0.5, avg: map[Attribute]float64{AttrAttitude: -0.5}, degree: 4}
	a := New(Options{ID: 0, Kind: Minority, State: State{Attitude: 1, Support: 0.5, Discrimination: 0.5}, Seed: 3})
	a.Stage(env, defaultTick(100, -0.5))

	s := a.Staged()
	assert.InDelta(t, -0.25, s.Support, 1e-12)
	assert.Zero(t, s.ProbConceal, "negative support never drives concealment")
	assert.False(t, s.Concealed)

	lonely := New(Options{ID: 1, Kind: Minority, State: State{Attitude: 1, Support: 0.5, Discrimination: 0.5}, Seed: 3})
	lonely.Stage(fakeEnv{minority: 0, unconcealed: 0, avg: env.avg, degree: 4}, defaultTick(100, 0.8))
	assert.Zero(t, lonely.Staged().Support)
	assert.Zero(t, lonely.Staged().ProbConceal)
	assert.False(t, lonely.Staged().Concealed)
}

func TestMinority_IsolatedAgent(t *testing.T) {
	a := New(Options{ID: 0, Kind: Minority, State: State{Attitude: 1, Support: 0.9, Depression: 0.4}})
	a.Stage(isolated, defaultTick(300, 1))

	s := a.Staged()
	assert.Zero(t, s.Support, "isolated minority agents have no support")
	// Without neighbors the local attitude is 0, so discrimination is 1 - policy/max.
	assert.InDelta(t, 1-300/constants.MaxPolicyScore, s.Discrimination, 1e-12)
}

func TestMinority_ConcealedDoublesDiscrimination(t *testing.T) {
	env := fakeEnv{avg: map[Attribute]float64{AttrAttitude: 0.2}, degree: 1}

	open := New(Options{ID: 0, Kind: Minority, State: State{Concealed: false}})
	open.Stage(env, defaultTick(105, 0))
	hidden := New(Options{ID: 0, Kind: Minority, State: State{Concealed: true}})
	hidden.Stage(env, defaultTick(105, 0))

	assert.InDelta(t, 0.6, open.Staged().Discrimination, 1e-12)
	assert.InDelta(t, 1.2, hidden.Staged().Discrimination, 1e-12)
}

func TestMinority_DiscriminationFloorsAtZero(t *testing.T) {
	a := New(Options{ID: 0, Kind: Minority})
	a.Stage(fakeEnv{avg: map[Attribute]float64{AttrAttitude: 1}, degree: 1}, defaultTick(constants.MaxPolicyScore, 1))
	assert.Zero(t, a.Staged().Discrimination)
}

func TestConcealProbability(t *testing.T) {
	assert.InDelta(t, 0.01, concealProbability(0.5, 0.5, constants.MaxPolicyScore), 1e-12)
	assert.Equal(t, concealProbability(0.3, 0.4, 0), concealProbability(0.3, 0.4, 1), "policy 0 behaves as policy 1")
	// 0.3 / (0.4 * 1 / 525) / 100
	assert.InDelta(t, 0.3/(0.4/constants.MaxPolicyScore)/constants.ConcealScale, concealProbability(0.3, 0.4, 0), 1e-12)
	assert.Zero(t, concealProbability(0.2, 0, 100))
	assert.Zero(t, concealProbability(0.2, -0.25, 100))
	assert.Zero(t, concealProbability(0, 0, 100))
}

func TestUpdateDepression_CoachAndTimeRelief(t *testing.T) {
	state := State{Attitude: 1, Support: 1, Depression: 0.5}
	step := StepImpacts{Time: 0.01, Coach: 0.2}
	tick := Tick{Step: step}

	plain := New(Options{ID: 0, Kind: NonMinority, State: state})
	plain.Stage(isolated, tick)
	coached := New(Options{ID: 1, Kind: NonMinority, State: state, HasCoach: true})
	coached.Stage(isolated, tick)

	assert.InDelta(t, 0.49, plain.Staged().Depression, 1e-12)
	assert.InDelta(t, 0.29, coached.Staged().Depression, 1e-12)
}

func TestUpdateDepression_SocialPull(t *testing.T) {
	tick := Tick{Step: StepImpacts{Social: 0.5}}
	env := fakeEnv{avg: map[Attribute]float64{AttrDepression: 1}, degree: 2}

	a := New(Options{ID: 0, Kind: NonMinority, State: State{Depression: 0.2}})
	a.Stage(env, tick)
	assert.InDelta(t, 0.6, a.Staged().Depression, 1e-12)

	// An isolated agent feels no social pull even if LocalAvg were nonzero.
	b := New(Options{ID: 1, Kind: NonMinority, State: State{Depression: 0.2}})
	b.Stage(fakeEnv{avg: env.avg}, tick)
	assert.InDelta(t, 0.2, b.Staged().Depression, 1e-12)
}

func TestConcealment_DeterministicPerSeed(t *testing.T) {
	draw := func(seed uint64) []bool {
		a := New(Options{ID: 4, Kind: Minority, State: State{Support: 0.1, Discrimination: 0.5}, Seed: seed})
		env := fakeEnv{minority: 0.5, avg: map[Attribute]float64{AttrAttitude: -0.5}, degree: 2}
		var out []bool
		for i := 0; i < 20; i++ {
			a.Stage(env, defaultTick(5, 0.05))
			a.Commit(i)
			out = append(out, a.State().Concealed)
		}
		return out
	}
	assert.Equal(t, draw(42), draw(42))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "minority", Minority.String())
	assert.Equal(t, "non-minority", NonMinority.String())
	assert.Equal(t, "Kind(7)", Kind(7).String())
	assert.Equal(t, "prob_conceal", AttrProbConceal.String())
	assert.Equal(t, "high_support", FlagHighSupport.String())
	assert.Equal(t, "Flag(9)", Flag(9).String())
}

func TestFlagHolds(t *testing.T) {
	a := New(Options{ID: 0, Kind: Minority, State: State{
		Depression: constants.DepressedThreshold,
		Support:    constants.HighSupportThreshold - 0.01,
		Concealed:  true,
	}})
	assert.True(t, FlagDepressed.Holds(a), "threshold is inclusive")
	assert.False(t, FlagHighSupport.Holds(a))
	assert.True(t, FlagConcealed.Holds(a))
	assert.False(t, FlagDiscriminatory.Holds(a))
	a.SetDiscriminatory(true)
	assert.True(t, FlagDiscriminatory.Holds(a))
}
