package experiment

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lininvbox"
)

func zigzagProblem(t *testing.T) (*lininvbox.DesignMatrix, *lininvbox.DataArray) {
	t.Helper()
	dist, err := lininvbox.NewTerm("dist", lininvbox.TermLinearInterpolation, lininvbox.Values(0, 1, 2, 3, 4))
	require.NoError(t, err)
	g, err := lininvbox.NewInterpolationCoeffs(dist)
	require.NoError(t, err)
	d, err := lininvbox.NewDataArray([]float64{0, 1, 0, 1, 0})
	require.NoError(t, err)
	return g, d
}

func TestRegularisationSweep(t *testing.T) {
	g, d := zigzagProblem(t)
	inv := lininvbox.NewInversion("sweep")
	alphas := []float64{0.1, 1, 10, 100, 1000}

	result, err := RegularisationSweep(inv, g, d, "dist", alphas, nil)
	require.NoError(t, err)
	assert.Equal(t, alphas, result.Alphas)
	assert.Len(t, result.MSE, len(alphas))
	assert.Len(t, result.Roughness, len(alphas))
	assert.Greater(t, result.Roughness[0], result.Roughness[len(alphas)-1], "roughness falls across the grid")
	assert.Less(t, result.MSE[0], result.MSE[len(alphas)-1], "residual grows across the grid")
	assert.GreaterOrEqual(t, result.BestIndex, 2, "turning point accounts for the two differenced points")
	assert.Less(t, result.BestIndex, len(alphas))
	assert.Equal(t, alphas[result.BestIndex], result.BestAlpha())
}

func TestRegularisationSweepValidation(t *testing.T) {
	g, d := zigzagProblem(t)
	inv := lininvbox.NewInversion("sweep")

	_, err := RegularisationSweep(inv, g, d, "dist", nil, nil)
	assert.ErrorIs(t, err, lininvbox.ErrInvalidArgument)

	_, err = RegularisationSweep(inv, g, d, "depth", []float64{1, 2, 3}, nil)
	assert.ErrorIs(t, err, lininvbox.ErrTermNotFound)
}

func TestSweepWithCache(t *testing.T) {
	g, d := zigzagProblem(t)
	inv := lininvbox.NewInversion("cached")
	alphas := []float64{0.1, 1, 10, 100}
	root := filepath.Join(t.TempDir(), "sweep")

	first, err := SweepWithCache(root, false, inv, g, d, "dist", alphas, nil)
	require.NoError(t, err)

	// unchanged grid reloads the dump
	second, err := SweepWithCache(root, false, inv, g, d, "dist", alphas, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// a new grid invalidates the cache
	third, err := SweepWithCache(root, false, inv, g, d, "dist", []float64{1, 10, 100}, nil)
	require.NoError(t, err)
	assert.Len(t, third.Alphas, 3)

	// overwrite recomputes in place
	fourth, err := SweepWithCache(root, true, inv, g, d, "dist", alphas, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Alphas, fourth.Alphas)
}
