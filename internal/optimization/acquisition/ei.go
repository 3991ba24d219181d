// Package acquisition scores candidate points from a surrogate's posterior.
package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ExpectedImprovement implements the Expected Improvement acquisition
// function for minimization.
type ExpectedImprovement struct {
	// Lowest loss observed so far
	bestObserved float64
	// Exploration-exploitation trade-off parameter (xi)
	xi float64
}

// NewExpectedImprovement creates an ExpectedImprovement relative to
// bestObserved.
func NewExpectedImprovement(bestObserved, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{
		bestObserved: bestObserved,
		xi:           xi,
	}
}

// Compute returns the expected improvement of a point whose posterior has
// mean mu and standard deviation sigma. The result is never negative.
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	improvement := ei.bestObserved - mu - ei.xi
	if math.IsNaN(improvement) {
		return 0
	}

	// A certain prediction improves by exactly its margin.
	if sigma <= 1e-10 {
		return math.Max(improvement, 0)
	}

	// EI = improvement * Φ(z) + sigma * φ(z)
	z := improvement / sigma
	return math.Max(improvement*distuv.UnitNormal.CDF(z)+sigma*distuv.UnitNormal.Prob(z), 0)
}

// UpdateBest updates the best observed value
func (ei *ExpectedImprovement) UpdateBest(best float64) {
	ei.bestObserved = best
}

// SetXi sets the exploration-exploitation trade-off parameter
func (ei *ExpectedImprovement) SetXi(xi float64) {
	ei.xi = xi
}

// BestObserved returns the best observed value
func (ei *ExpectedImprovement) BestObserved() float64 {
	return ei.bestObserved
}
