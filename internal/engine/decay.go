package engine

import "math"

// AgeWeight returns the exponential half-life recency discount for a
// candidate ageTurns turns old (0 = most recent). At age == halfLifeTurns
// the weight is 0.5; at age 0 it is 1.0. The half-life is floored at one
// turn to guard degenerate configuration.
//
// Weight formula: exp(-(ln2 / halfLife) * age), strictly decreasing in age.
func AgeWeight(ageTurns, halfLifeTurns int) float64 {
	halfLife := float64(halfLifeTurns)
	if halfLife < 1 {
		halfLife = 1
	}
	return math.Exp(-(math.Ln2 / halfLife) * float64(ageTurns))
}
