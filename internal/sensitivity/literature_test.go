package sensitivity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLiterature_InRange(t *testing.T) {
	report := &Report{
		OddsRatios: []Row{
			{Label: PrevalenceLabel, Value: 0.2},
			{Label: "Minority_Depress", Value: 2},
			{Label: "Support_Depress", Value: 3},
			{Label: "Density_Depress", Value: 0.8},
		},
		Regressions: []Correlation{
			{Label: "Support_vs_Concealment", Overall: -0.35},
			{Label: "Concealment_vs_Discrimination", Overall: -0.15},
			{Label: "Discrimination_vs_Depression", Overall: 0.25},
			{Label: "Concealment_vs_Depression", Overall: 0.3},
		},
	}
	assert.Empty(t, CheckLiterature(report))
}

func TestCheckLiterature_Violations(t *testing.T) {
	report := &Report{
		OddsRatios: []Row{
			{Label: "Minority_Depress", Value: 1.55},
			{Label: "Support_Depress", Value: 3},
		},
		Regressions: []Correlation{
			// Only the overall view is checked.
			{Label: "Support_vs_Concealment", Unconcealed: -0.35, Overall: 0.1},
		},
	}

	errs := CheckLiterature(report)
	require.Len(t, errs, 2)

	var rv RangeViolation
	require.True(t, errors.As(errs[0], &rv))
	assert.Equal(t, "Minority_Depress OR", rv.Metric)
	assert.Equal(t, Range{1.55, 2.65}, rv.Range)

	require.True(t, errors.As(errs[1], &rv))
	assert.Equal(t, "Support_vs_Concealment regression", rv.Metric)
	assert.Contains(t, errs[1].Error(), "not in range (-0.400, -0.300)")
}

func TestCheckLiterature_IgnoresUnknownLabels(t *testing.T) {
	report := &Report{OddsRatios: []Row{{Label: "Something_Else", Value: 100}}}
	assert.Empty(t, CheckLiterature(report))
}
