package lininvbox

import (
	"fmt"
	"math"
)

// constantCoeffs codes a term's raw labels as one-hot indicators: one triplet
// per observation row at the label's local column, value equal to the term
// sign. Columns are local to the term; Concat shifts them when design
// matrices are joined.
func constantCoeffs(t *Term) (*Coo, error) {
	c, err := NewCoo(len(t.raw), t.NumParams())
	if err != nil {
		return nil, err
	}
	for row, label := range t.raw {
		col, ok := t.local[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q not in %v of term %q",
				ErrLabelNotFound, label, labelStrings(t.unique), t.name)
		}
		c.Push(row, col, float64(t.sign))
	}
	return c, nil
}

// interpolationWeights returns the weights a label contributes to the lower
// and upper node of the interval containing it.
func interpolationWeights(label, lower, upper float64) (wLower, wUpper float64) {
	wLower = (upper - label) / (upper - lower)
	return wLower, 1 - wLower
}

// interpolationCoeffs codes a term's numeric raw labels as piecewise-linear
// weights between adjacent nodes: two triplets per observation row, at the
// local columns of the bracketing nodes. Intervals are open below and closed
// above, except the first interval which is closed on both ends so a label
// sitting exactly on the first node still lands in the matrix.
func interpolationCoeffs(t *Term) (*Coo, error) {
	c, err := NewCoo(len(t.raw), t.NumParams())
	if err != nil {
		return nil, err
	}
	nodes := t.unique
	for row, label := range t.raw {
		v := label.Float()
		for n := 0; n < len(nodes)-1; n++ {
			lower, upper := nodes[n].Float(), nodes[n+1].Float()
			inFirst := n == 0 && v == lower
			if !inFirst && (v <= lower || v > upper) {
				continue
			}
			wLower, wUpper := interpolationWeights(v, lower, upper)
			c.Push(row, n, float64(t.sign)*wLower)
			c.Push(row, n+1, float64(t.sign)*wUpper)
			break
		}
	}
	return c, nil
}

// constantConstraintRow builds the single F row fixing one of the term's
// parameters: value 1 at the target label's global model index.
func constantConstraintRow(t *Term, label Label, npars int) (*Coo, error) {
	col, err := t.Index(label)
	if err != nil {
		return nil, err
	}
	c, err := NewCoo(1, npars)
	if err != nil {
		return nil, err
	}
	c.Push(0, col, 1)
	return c, nil
}

// sumConstraintRow builds the single F row constraining the sum of the
// term's parameters: value 1 at every model index the term owns.
func sumConstraintRow(t *Term, npars int) (*Coo, error) {
	c, err := NewCoo(1, npars)
	if err != nil {
		return nil, err
	}
	for _, col := range t.ModelIndices() {
		c.Push(0, col, 1)
	}
	return c, nil
}

// identityOperator is the n×n identity, the zeroth-order damping operator.
func identityOperator(n int) *Coo {
	c, _ := NewCoo(n, n)
	for i := 0; i < n; i++ {
		c.Push(i, i, 1)
	}
	return c
}

// finiteDifferenceOperator is the n×n first-order differencing operator:
// row i holds -1 at column i and +1 at column i+1. The last row stays zero
// so the operator keeps the term's square block shape.
func finiteDifferenceOperator(n int) *Coo {
	c, _ := NewCoo(n, n)
	for i := 0; i < n-1; i++ {
		c.Push(i, i, -1)
		c.Push(i, i+1, 1)
	}
	return c
}

// Roughness is the L2 norm of the second-order finite difference of a model
// slice. Smooth models score near zero.
func Roughness(m []float64) float64 {
	var sum float64
	for i := 0; i+2 < len(m); i++ {
		d2 := m[i+2] - 2*m[i+1] + m[i]
		sum += d2 * d2
	}
	return math.Sqrt(sum)
}

// MSE is the mean squared error between observed and predicted data arrays.
func MSE(d, pred []float64) (float64, error) {
	if len(d) != len(pred) {
		return 0, fmt.Errorf("%w: observed length %d, predicted length %d", ErrShapeMismatch, len(d), len(pred))
	}
	if len(d) == 0 {
		return 0, fmt.Errorf("%w: empty data arrays", ErrInvalidArgument)
	}
	var sum float64
	for i := range d {
		r := d[i] - pred[i]
		sum += r * r
	}
	return sum / float64(len(d)), nil
}
