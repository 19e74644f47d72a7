package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embruze/SexualEqualityABM-1/internal/constants"
)

func TestFactory_MinorityCount(t *testing.T) {
	tests := []struct {
		name  string
		nodes int
		pct   float64
		want  int
	}{
		{"exact", 10, 0.3, 3},
		{"rounds half up", 10, 0.25, 3},
		{"rounds down", 100, 0.104, 10},
		{"none", 10, 0, 0},
		{"clamped above", 10, 1.5, 10},
		{"clamped below", 10, -0.2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Factory{NodeCount: tt.nodes, PercentMinority: tt.pct}
			assert.Equal(t, tt.want, f.MinorityCount())
		})
	}
}

func TestFactory_KindsAndDefaults(t *testing.T) {
	f := Factory{NodeCount: 10, PercentMinority: 0.3, Seed: 5}
	for i := 0; i < f.NodeCount; i++ {
		a := f.Create(i)
		require.Equal(t, int64(i), a.ID())

		s := a.State()
		if i < 3 {
			assert.Equal(t, Minority, a.Kind(), "agent %d", i)
			assert.Equal(t, constants.MinorityAttitude, s.Attitude)
			assert.GreaterOrEqual(t, s.Support, 0.0)
			assert.Less(t, s.Support, 1.0)
			assert.False(t, a.Discriminatory())
		} else {
			assert.Equal(t, NonMinority, a.Kind(), "agent %d", i)
			assert.Equal(t, constants.NonMinoritySupport, s.Support)
			assert.GreaterOrEqual(t, s.Attitude, -1.0)
			assert.Less(t, s.Attitude, 1.0)
			assert.Zero(t, s.Discrimination)
			assert.False(t, s.Concealed)
		}
		assert.Equal(t, s.Attitude, a.BaseAttitude())
		assert.Equal(t, s.Depression, a.PastDepression())
	}
}

func TestFactory_Deterministic(t *testing.T) {
	f := Factory{NodeCount: 20, PercentMinority: 0.5, CoachRate: 0.5, Seed: 99}
	for i := 0; i < f.NodeCount; i++ {
		a, b := f.Create(i), f.Create(i)
		assert.Equal(t, a.State(), b.State())
		assert.Equal(t, a.HasCoach(), b.HasCoach())
	}

	other := Factory{NodeCount: 20, PercentMinority: 0.5, CoachRate: 0.5, Seed: 100}
	same := 0
	for i := 0; i < f.NodeCount; i++ {
		if f.Create(i).State() == other.Create(i).State() {
			same++
		}
	}
	assert.Less(t, same, f.NodeCount, "different seeds should give different populations")
}

func TestFactory_OverrideDoesNotShiftDraws(t *testing.T) {
	base := Factory{NodeCount: 12, PercentMinority: 0.5, CoachRate: 0.4, Seed: 17}
	fixed := base
	fixed.Initial = Initial{Support: Float(0.8)}

	for i := 0; i < base.NodeCount; i++ {
		a, b := base.Create(i), fixed.Create(i)
		sa, sb := a.State(), b.State()

		assert.Equal(t, sa.Depression, sb.Depression, "agent %d", i)
		assert.Equal(t, sa.Discrimination, sb.Discrimination, "agent %d", i)
		assert.Equal(t, sa.Concealed, sb.Concealed, "agent %d", i)
		assert.Equal(t, sa.Attitude, sb.Attitude, "agent %d", i)
		assert.Equal(t, a.HasCoach(), b.HasCoach(), "agent %d", i)

		if a.IsMinority() {
			assert.Equal(t, 0.8, sb.Support)
		} else {
			assert.Equal(t, constants.NonMinoritySupport, sb.Support, "support is fixed outside the minority")
		}
	}
}

func TestFactory_FixedInitialValues(t *testing.T) {
	f := Factory{
		NodeCount:       10,
		PercentMinority: 0.4,
		Seed:            3,
		Initial: Initial{
			Attitude:       Float(-0.25),
			Discrimination: Float(0.6),
			Conceal:        Float(1),
			Depression:     Float(0.7),
		},
	}
	for i := 0; i < f.NodeCount; i++ {
		a := f.Create(i)
		s := a.State()
		assert.Equal(t, -0.25, s.Attitude)
		assert.Equal(t, 0.7, s.Depression)
		if a.IsMinority() {
			assert.Equal(t, 0.6, s.Discrimination)
			assert.True(t, s.Concealed)
		}
	}

	f.Initial = Initial{Conceal: Float(0)}
	for i := 0; i < f.MinorityCount(); i++ {
		assert.False(t, f.Create(i).State().Concealed)
	}
}

func TestFactory_CoachRate(t *testing.T) {
	never := Factory{NodeCount: 30, CoachRate: 0, Seed: 1}
	always := Factory{NodeCount: 30, CoachRate: 1, Seed: 1}
	for i := 0; i < 30; i++ {
		assert.False(t, never.Create(i).HasCoach())
		assert.True(t, always.Create(i).HasCoach())
	}
}
