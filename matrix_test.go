package lininvbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func buildTwoTermMatrix(t *testing.T) *DesignMatrix {
	t.Helper()
	station, err := NewTerm("station", TermConstant, Names("A", "A", "B", "B"))
	require.NoError(t, err)
	dist, err := NewTerm("dist", TermLinearInterpolation, Values(5, 15, 5, 15), WithUniqueLabels(Values(0, 10, 20)))
	require.NoError(t, err)

	gs, err := NewConstantCoeffs(station)
	require.NoError(t, err)
	gd, err := NewInterpolationCoeffs(dist)
	require.NoError(t, err)

	g, err := gs.Concat(gd)
	require.NoError(t, err)
	return g
}

func TestDesignMatrixConcat(t *testing.T) {
	g := buildTwoTermMatrix(t)

	nr, nc := g.Dims()
	assert.Equal(t, 4, nr)
	assert.Equal(t, 5, nc)
	assert.Equal(t, []string{"station", "dist"}, g.Equation().TermNames())

	dense := g.Dense()
	// row 0: station A + dist label 5 between nodes 0 and 10
	assert.InDelta(t, 1, dense.At(0, 0), 1e-12)
	assert.InDelta(t, 0, dense.At(0, 1), 1e-12)
	assert.InDelta(t, 0.5, dense.At(0, 2), 1e-12)
	assert.InDelta(t, 0.5, dense.At(0, 3), 1e-12)
	// row 3: station B + dist label 15 between nodes 10 and 20
	assert.InDelta(t, 1, dense.At(3, 1), 1e-12)
	assert.InDelta(t, 0.5, dense.At(3, 3), 1e-12)
	assert.InDelta(t, 0.5, dense.At(3, 4), 1e-12)
}

func TestDesignMatrixConcatShapeMismatch(t *testing.T) {
	station, err := NewTerm("station", TermConstant, Names("A", "B"))
	require.NoError(t, err)
	dist, err := NewTerm("dist", TermLinearInterpolation, Values(5, 15, 5), WithUniqueLabels(Values(0, 10, 20)))
	require.NoError(t, err)

	gs, err := NewConstantCoeffs(station)
	require.NoError(t, err)
	gd, err := NewInterpolationCoeffs(dist)
	require.NoError(t, err)

	_, err = gs.Concat(gd)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestDesignMatrixAppend(t *testing.T) {
	station, err := NewTerm("station", TermConstant, Names("A", "B"))
	require.NoError(t, err)
	g, err := NewConstantCoeffs(station)
	require.NoError(t, err)

	stacked, err := g.Append(g)
	require.NoError(t, err)
	nr, nc := stacked.Dims()
	assert.Equal(t, 4, nr)
	assert.Equal(t, 2, nc)
	assert.Equal(t, 2, stacked.Equation().NumParams(), "row-stacking keeps the term map")
}

func TestBuildDesignMatrixDispatch(t *testing.T) {
	station, err := NewTerm("station", TermConstant, Names("A", "B"))
	require.NoError(t, err)
	dist, err := NewTerm("dist", TermLinearInterpolation, Values(0, 10))
	require.NoError(t, err)

	gs, err := BuildDesignMatrix(station)
	require.NoError(t, err)
	_, nc := gs.Dims()
	assert.Equal(t, 2, nc)

	gd, err := BuildDesignMatrix(dist)
	require.NoError(t, err)
	_, nc = gd.Dims()
	assert.Equal(t, 2, nc)

	_, err = NewConstantCoeffs(dist)
	assert.ErrorIs(t, err, ErrInvalidArgument, "kind-specific constructors reject the other kind")
}

func TestDesignMatrixClone(t *testing.T) {
	g := buildTwoTermMatrix(t)
	c := g.Clone()
	c.Matrix().Push(0, 0, 5)
	assert.InDelta(t, 1, g.Dense().At(0, 0), 1e-12, "clone does not alias the original")
}

func TestDataArray(t *testing.T) {
	_, err := NewDataArray(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	d, err := NewDataArray([]float64{1, 2})
	require.NoError(t, err)
	more, err := NewDataArray([]float64{3})
	require.NoError(t, err)
	stacked, err := d.Append(more)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, stacked.Values())
	assert.Equal(t, 2, d.Len(), "append returns a new array")
}

func TestDataArrayFromDense(t *testing.T) {
	row := mat.NewDense(1, 3, []float64{1, 2, 3})
	d, err := NewDataArrayFromDense(row)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, d.Values(), "1×N input is transposed to a column")

	square := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	_, err = NewDataArrayFromDense(square)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestModelArrayTermValues(t *testing.T) {
	g := buildTwoTermMatrix(t)

	m, err := NewModelArray(g.Equation(), []float64{1, 2, 3, 4, 5, 99, 98})
	require.NoError(t, err)
	assert.Equal(t, 5, m.Len(), "values beyond npars are discarded")

	station, err := m.TermValues("station")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, station)

	dist, err := m.TermValues("dist")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, dist)

	term, err := m.Equation().Term("dist")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, term.Values(), "values are dumped onto the term records")

	_, err = m.TermValues("nope")
	assert.ErrorIs(t, err, ErrTermNotFound)

	_, err = NewModelArray(g.Equation(), []float64{1, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
