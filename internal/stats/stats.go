// Package stats provides the robust statistics primitives behind the
// significance engine: cosine similarity, median/MAD standardization,
// empirical CDFs, and the Benjamini-Hochberg step-up procedure.
//
// All functions are pure and safe for concurrent use.
package stats

import (
	"math"
	"sort"
)

const (
	// madEpsilon is the floor applied to the MAD before division so that a
	// zero-variance sample never produces a division by zero.
	madEpsilon = 1e-9

	// normalConsistency rescales the MAD so that robust z-scores are
	// comparable to classical z-scores under a normal distribution.
	normalConsistency = 0.6745
)

// Cosine returns the cosine similarity of two vectors. Mismatched lengths
// are compared over the shorter prefix; a zero vector yields 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Median returns the median of values. Returns 0 for an empty slice.
// The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// MAD returns the median absolute deviation of values around the given
// center. Returns 0 for an empty slice.
func MAD(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - center)
	}
	return Median(deviations)
}

// RobustZ transforms a value to a z-like score using a median and MAD
// computed elsewhere. The MAD is floored to a small epsilon, so a
// degenerate zero-spread sample produces large but finite scores instead
// of dividing by zero.
func RobustZ(v, median, mad float64) float64 {
	return normalConsistency * (v - median) / math.Max(mad, madEpsilon)
}

// StandardizeJoint computes a shared median and MAD over the concatenation
// of observed and null, then robust-z transforms both populations onto that
// common scale. Median/MAD standardization resists the outliers that a
// genuinely informative candidate introduces into the pooled sample.
func StandardizeJoint(observed, null []float64) (obsZ, nullZ []float64) {
	pooled := make([]float64, 0, len(observed)+len(null))
	pooled = append(pooled, observed...)
	pooled = append(pooled, null...)

	center := Median(pooled)
	spread := MAD(pooled, center)

	obsZ = make([]float64, len(observed))
	for i, v := range observed {
		obsZ[i] = RobustZ(v, center, spread)
	}
	nullZ = make([]float64, len(null))
	for i, v := range null {
		nullZ[i] = RobustZ(v, center, spread)
	}
	return obsZ, nullZ
}

// ECDF is an empirical cumulative distribution function built from a sample.
type ECDF struct {
	sorted []float64
}

// NewECDF builds an ECDF from the given sample. The input is copied.
func NewECDF(sample []float64) *ECDF {
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)
	return &ECDF{sorted: sorted}
}

// P returns F(x), the fraction of the sample less than or equal to x.
// An empty sample yields 0.
func (e *ECDF) P(x float64) float64 {
	if len(e.sorted) == 0 {
		return 0
	}
	// First index with value > x.
	idx := sort.Search(len(e.sorted), func(i int) bool {
		return e.sorted[i] > x
	})
	return float64(idx) / float64(len(e.sorted))
}

// PValueUpper returns the one-sided upper-tail p-value 1 - F(x).
func (e *ECDF) PValueUpper(x float64) float64 {
	return 1 - e.P(x)
}

// BenjaminiHochberg applies the BH step-up procedure to the given p-values
// at FDR level alpha and returns, aligned with the input order, whether each
// hypothesis is rejected (i.e. the candidate is significant).
//
// The procedure sorts p-values ascending, finds the largest 1-based index j
// with p_(j) <= (j/n) * alpha, and rejects every hypothesis at sorted rank
// <= j. When no such j exists, nothing is rejected.
func BenjaminiHochberg(pvalues []float64, alpha float64) []bool {
	n := len(pvalues)
	rejected := make([]bool, n)
	if n == 0 || alpha <= 0 {
		return rejected
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return pvalues[order[a]] < pvalues[order[b]]
	})

	cutoff := -1
	for j := 0; j < n; j++ {
		threshold := float64(j+1) / float64(n) * alpha
		if pvalues[order[j]] <= threshold {
			cutoff = j
		}
	}

	for j := 0; j <= cutoff; j++ {
		rejected[order[j]] = true
	}
	return rejected
}
