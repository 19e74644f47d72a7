// Package constants provides named constants used throughout the smdsim codebase.
// This centralizes model coefficients and thresholds for better maintainability.
package constants

// Policy and concealment constants
const (
	// MaxPolicyScore is the upper bound of the network-wide policy score.
	// The policy score is always kept in [0, MaxPolicyScore].
	MaxPolicyScore = 525.0

	// ConcealScale divides the raw concealment ratio into a probability.
	ConcealScale = 100.0

	// ConcealedDiscriminationFactor multiplies discrimination for concealed agents.
	ConcealedDiscriminationFactor = 2.0
)

// Attitude constants
const (
	// AttitudeSwing is the maximum shift of a non-minority agent's attitude
	// away from its baseline, reached when every neighbor is an
	// unconcealed minority agent.
	AttitudeSwing = 0.75

	// MinorityAttitude is the initial attitude of minority agents, who are
	// modeled as fully accepting of one another.
	MinorityAttitude = 1.0

	// NonMinoritySupport is the fixed support level of non-minority agents.
	NonMinoritySupport = 1.0
)

// Classification thresholds used by population summaries and odds ratios.
const (
	// DepressedThreshold is the depression level at or above which an agent
	// counts as depressed.
	DepressedThreshold = 0.5

	// HighSupportThreshold is the support level at or above which an agent
	// counts as well supported.
	HighSupportThreshold = 0.5

	// DiscriminateRate is the base rate at which non-minority agents are
	// assigned the discriminatory flag.
	DiscriminateRate = 0.22
)

// Network construction limits
const (
	// MinNodeCount is the smallest population an ER network may be built with.
	MinNodeCount = 4
)

// Default step impacts, applied on every call to UpdateAgents.
const (
	DefaultTimeImpact   = 0.005
	DefaultCoachImpact  = 0.225
	DefaultPastImpact   = 0.025
	DefaultSocialImpact = 0.015
)

// Default causal impacts. Each scales one path of the depression model and
// is a target of the impact sensitivity sweep.
const (
	DefaultSupportDepressionImpact      = 0.10
	DefaultConcealDiscriminateImpact    = 0.05
	DefaultDiscriminateConcealImpact    = 0.05
	DefaultDiscriminateDepressionImpact = 0.10
	DefaultConcealDepressionImpact      = 0.10
)

// Default network parameters
const (
	DefaultNodeCount       = 100
	DefaultAttachProb      = 0.25
	DefaultPercentMinority = 0.10
	DefaultTimeSpan        = 10
)
