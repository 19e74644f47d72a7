package sensitivity

import "fmt"

// Range is an open interval of acceptable values.
type Range struct {
	Lower, Upper float64
}

func (r Range) contains(v float64) bool { return r.Lower < v && v < r.Upper }

// RangeViolation reports a statistic outside its published range.
type RangeViolation struct {
	Metric string
	Value  float64
	Range  Range
}

func (v RangeViolation) Error() string {
	return fmt.Sprintf("%s = %.4f not in range (%.3f, %.3f)", v.Metric, v.Value, v.Range.Lower, v.Range.Upper)
}

// OddsRatioRanges are the published ranges of the odds ratio rows, by label.
var OddsRatioRanges = map[string]Range{
	PrevalenceLabel:    {0.175, 0.259},
	"Minority_Depress": {1.55, 2.65},
	"Support_Depress":  {1.5, 4.7},
	"Density_Depress":  {0.4, 1.2},
}

// RegressionRanges are the published ranges of the overall correlations, by
// regression label.
var RegressionRanges = map[string]Range{
	"Support_vs_Concealment":        {-0.40, -0.30},
	"Concealment_vs_Discrimination": {-0.20, -0.10},
	"Discrimination_vs_Depression":  {0.20, 0.30},
	"Concealment_vs_Depression":     {0.22, 0.33},
}

// CheckLiterature returns one RangeViolation for every odds ratio or overall
// correlation in report that falls outside its published range. Passes that
// were not run are not checked.
func CheckLiterature(report *Report) []error {
	var errs []error
	for _, row := range report.OddsRatios {
		r, ok := OddsRatioRanges[row.Label]
		if ok && !r.contains(row.Value) {
			errs = append(errs, RangeViolation{Metric: row.Label + " OR", Value: row.Value, Range: r})
		}
	}
	for _, c := range report.Regressions {
		r, ok := RegressionRanges[c.Label]
		if ok && !r.contains(c.Overall) {
			errs = append(errs, RangeViolation{Metric: c.Label + " regression", Value: c.Overall, Range: r})
		}
	}
	return errs
}
