package experiment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"lininvbox"
)

func bootstrapProblem(t *testing.T) (*lininvbox.DesignMatrix, *lininvbox.DataArray) {
	t.Helper()
	dist, err := lininvbox.NewTerm("dist", lininvbox.TermLinearInterpolation,
		lininvbox.Values(0, 2, 5, 7, 10, 12, 15, 18, 20), lininvbox.WithUniqueLabels(lininvbox.Values(0, 10, 20)))
	require.NoError(t, err)
	g, err := lininvbox.NewInterpolationCoeffs(dist)
	require.NoError(t, err)
	d, err := lininvbox.NewDataArray([]float64{1, 1.2, 1.5, 1.7, 2, 2.2, 2.5, 2.8, 3})
	require.NoError(t, err)
	return g, d
}

func TestBootstrap(t *testing.T) {
	g, d := bootstrapProblem(t)
	s := NewSession(16, 0.5)
	s.Seed = 42
	s.Workers = 4

	models, err := Bootstrap(context.Background(), s, g, d, nil, nil)
	require.NoError(t, err)
	npars, trials := models.Dims()
	assert.Equal(t, 3, npars)
	assert.Equal(t, 16, trials)

	// same seed, same ensemble
	again, err := Bootstrap(context.Background(), s, g, d, nil, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(models, again, 1e-12))

	// inputs stay untouched by the per-trial resampling
	assert.Equal(t, []float64{1, 1.2, 1.5, 1.7, 2, 2.2, 2.5, 2.8, 3}, d.Values())
}

func TestBootstrapValidation(t *testing.T) {
	g, d := bootstrapProblem(t)

	s := NewSession(0, 0.5)
	_, err := Bootstrap(context.Background(), s, g, d, nil, nil)
	assert.ErrorIs(t, err, lininvbox.ErrInvalidArgument)

	s = NewSession(4, 1.5)
	_, err = Bootstrap(context.Background(), s, g, d, nil, nil)
	assert.ErrorIs(t, err, lininvbox.ErrInvalidArgument)
}

func TestBootstrapCancellation(t *testing.T) {
	g, d := bootstrapProblem(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(64, 0.5)
	s.Workers = 1
	_, err := Bootstrap(ctx, s, g, d, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummary(t *testing.T) {
	models := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 4, 4,
	})
	means, stddevs := Summary(models)
	assert.Equal(t, []float64{2, 4}, means)
	assert.InDelta(t, 1, stddevs[0], 1e-12)
	assert.Equal(t, 0.0, stddevs[1])
}

func TestBootstrapWithCache(t *testing.T) {
	g, d := bootstrapProblem(t)
	root := filepath.Join(t.TempDir(), "bts")
	s := NewSession(8, 0.5)
	s.Seed = 7

	models, err := BootstrapWithCache(context.Background(), root, false, s, g, d, nil, nil)
	require.NoError(t, err)

	// a second run reloads the dump even with a different seed
	s.Seed = 8
	cached, err := BootstrapWithCache(context.Background(), root, false, s, g, d, nil, nil)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(models, cached, 1e-12))

	// overwrite forces a rerun
	fresh, err := BootstrapWithCache(context.Background(), root, true, s, g, d, nil, nil)
	require.NoError(t, err)
	_, trials := fresh.Dims()
	assert.Equal(t, 8, trials)
}
