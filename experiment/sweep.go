// Package experiment contains batch-experiment drivers built on the core
// inversion framework: regularisation strength sweeps with L-curve selection
// and bootstrap resampling of observation rows, both with simple disk caches
// for repeated runs.
package experiment

import (
	"fmt"
	"math"

	"lininvbox"
	"lininvbox/logger"
)

// SweepResult holds the tradeoff curve of one regularisation sweep: for each
// α, the mean squared residual of the fit and the roughness of the swept
// term's recovered values, plus the index of the L-curve turning point.
type SweepResult struct {
	Alphas    []float64
	MSE       []float64
	Roughness []float64
	BestIndex int
}

// BestAlpha returns the α at the L-curve turning point.
func (r *SweepResult) BestAlpha() float64 { return r.Alphas[r.BestIndex] }

// RegularisationSweep inverts once per α with a finite-difference
// regulariser on the named term, recording the mean squared residual and the
// term's roughness. Constraints may be nil and are applied to every solve.
func RegularisationSweep(
	inv *lininvbox.Inversion,
	g *lininvbox.DesignMatrix,
	d *lininvbox.DataArray,
	term string,
	alphas []float64,
	constraints *lininvbox.Constraints,
) (*SweepResult, error) {
	if inv == nil || g == nil || d == nil {
		return nil, fmt.Errorf("%w: sweep needs an inversion, a design matrix and a data array", lininvbox.ErrInvalidArgument)
	}
	if len(alphas) == 0 {
		return nil, fmt.Errorf("%w: empty alpha grid", lininvbox.ErrInvalidArgument)
	}
	if !g.Equation().Has(term) {
		return nil, fmt.Errorf("%w: %q not in equation %v", lininvbox.ErrTermNotFound, term, g.Equation().TermNames())
	}

	result := &SweepResult{
		Alphas:    append([]float64(nil), alphas...),
		MSE:       make([]float64, len(alphas)),
		Roughness: make([]float64, len(alphas)),
	}
	for i, alpha := range alphas {
		reg, err := lininvbox.NewRegularisation(g.Equation(), map[string]lininvbox.RegSpec{
			term: {Kind: lininvbox.RegFiniteDifference, Alpha: alpha},
		})
		if err != nil {
			return nil, err
		}
		m, err := inv.Solve(g, d, constraints, reg)
		if err != nil {
			return nil, fmt.Errorf("alpha %g: %w", alpha, err)
		}
		pred, err := inv.Forward(g, m)
		if err != nil {
			return nil, err
		}
		mse, err := lininvbox.MSE(d.Values(), pred.Values())
		if err != nil {
			return nil, err
		}
		termVals, err := m.TermValues(term)
		if err != nil {
			return nil, err
		}
		result.MSE[i] = mse
		result.Roughness[i] = lininvbox.Roughness(termVals)
	}
	result.BestIndex = lCurveTurningPoint(result.Roughness)
	logger.Info.Printf("swept %d alphas on term %q, best alpha %g", len(alphas), term, result.BestAlpha())
	return result, nil
}

// lCurveTurningPoint picks the turning point of the roughness curve: the
// flattest point of log10(roughness), located by the smallest absolute
// second difference. The +2 accounts for the two points lost to double
// differencing.
func lCurveTurningPoint(roughness []float64) int {
	if len(roughness) < 3 {
		logger.Warn.Printf("need at least 3 alphas to locate an L-curve turning point, got %d", len(roughness))
		return 0
	}
	logRough := make([]float64, len(roughness))
	for i, r := range roughness {
		logRough[i] = math.Log10(r)
	}
	best, bestVal := 0, math.Inf(1)
	for i := 0; i+2 < len(logRough); i++ {
		d2 := math.Abs(logRough[i+2] - 2*logRough[i+1] + logRough[i])
		if !math.IsNaN(d2) && d2 < bestVal {
			best, bestVal = i, d2
		}
	}
	return best + 2
}
