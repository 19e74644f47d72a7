package network

import "github.com/embruze/SexualEqualityABM-1/internal/agent"

// Filter restricts a subgroup on one binary characteristic.
type Filter int

const (
	// Irrelevant applies no restriction.
	Irrelevant Filter = iota
	// Without keeps only agents lacking the characteristic.
	Without
	// With keeps only agents having the characteristic.
	With
)

func (f Filter) keep(has bool) bool {
	switch f {
	case With:
		return has
	case Without:
		return !has
	default:
		return true
	}
}

// OddsQuery selects the subgroup whose depression odds are computed.
type OddsQuery struct {
	Minority Filter
	Support  Filter
	// Dense keeps only agents with more neighbors than the mean degree.
	Dense bool
}

// DepressOdds returns depressed / not-depressed within the queried subgroup.
// It returns 0 when the subgroup is empty or when nobody in it is free of
// depression, so batch analyses never see Inf or NaN.
func (n *Network) DepressOdds(q OddsQuery) float64 {
	meanDegree := n.MeanDegree()

	total, depressed := 0, 0
	for _, a := range n.order {
		if !q.Minority.keep(a.IsMinority()) {
			continue
		}
		if !q.Support.keep(agent.FlagHighSupport.Holds(a)) {
			continue
		}
		if q.Dense && float64(n.Degree(a)) <= meanDegree {
			continue
		}
		total++
		if agent.FlagDepressed.Holds(a) {
			depressed++
		}
	}

	healthy := total - depressed
	if total == 0 || healthy == 0 {
		return 0
	}
	return float64(depressed) / float64(healthy)
}
