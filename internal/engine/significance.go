package engine

import (
	"github.com/scrypster/salient/internal/stats"
	"github.com/scrypster/salient/pkg/types"
)

// applySignificance standardizes observed final scores jointly with the
// null sample onto a common robust-z scale, annotates each candidate's
// detail, and returns a flag per candidate (aligned with scored) marking
// which are important under the configured policy.
//
// An empty null sample set conservatively marks nothing significant: with
// no reference distribution there is no basis for a claim.
func applySignificance(scored []types.ScoredUtterance, nullScores []float64, opts Options) []bool {
	flags := make([]bool, len(scored))
	if len(scored) == 0 || len(nullScores) == 0 {
		return flags
	}

	observed := make([]float64, len(scored))
	for i, s := range scored {
		observed[i] = s.Detail.FinalScore
	}

	obsZ, nullZ := stats.StandardizeJoint(observed, nullScores)
	for i := range scored {
		z := obsZ[i]
		scored[i].Detail.ZScore = &z
	}

	switch opts.Policy {
	case PolicyZThreshold:
		for i, z := range obsZ {
			flags[i] = z > opts.ZThreshold
		}
	default: // PolicyFDR
		ecdf := stats.NewECDF(nullZ)
		pvalues := make([]float64, len(obsZ))
		for i, z := range obsZ {
			p := ecdf.PValueUpper(z)
			pvalues[i] = p
			scored[i].Detail.PValue = &p
		}
		flags = stats.BenjaminiHochberg(pvalues, opts.FDRAlpha)
	}
	return flags
}
