package lininvbox

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Coo is a sparse matrix in COOrdinate (triplet) form: parallel row, column
// and value lists. Duplicate entries are additive and are accumulated when
// the matrix is exported to dense form, which is what the disjoint-block
// regularisation assembly relies on.
type Coo struct {
	rows, cols []int
	vals       []float64
	nr, nc     int
}

// NewCoo returns an empty nr×nc triplet matrix.
func NewCoo(nr, nc int) (*Coo, error) {
	if nr <= 0 || nc <= 0 {
		return nil, fmt.Errorf("%w: matrix shape must be positive, got %d×%d", ErrInvalidArgument, nr, nc)
	}
	return &Coo{nr: nr, nc: nc}, nil
}

// NewCooFromDense collects the nonzero entries of a dense matrix.
func NewCooFromDense(d *mat.Dense) *Coo {
	nr, nc := d.Dims()
	c := &Coo{nr: nr, nc: nc}
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			if v := d.At(i, j); v != 0 {
				c.Push(i, j, v)
			}
		}
	}
	return c
}

// Dims returns the matrix shape.
func (c *Coo) Dims() (int, int) { return c.nr, c.nc }

// NNZ returns the number of stored triplets.
func (c *Coo) NNZ() int { return len(c.vals) }

// Push appends one triplet. Out-of-range coordinates panic: triplet
// construction is internal to builders that already validated their inputs.
func (c *Coo) Push(row, col int, val float64) {
	if row < 0 || row >= c.nr || col < 0 || col >= c.nc {
		panic(fmt.Sprintf("lininvbox: triplet (%d, %d) outside %d×%d matrix", row, col, c.nr, c.nc))
	}
	c.rows = append(c.rows, row)
	c.cols = append(c.cols, col)
	c.vals = append(c.vals, val)
}

// VStack stacks other below c. Column counts must match.
func (c *Coo) VStack(other *Coo) (*Coo, error) {
	if c.nc != other.nc {
		return nil, fmt.Errorf("%w: cannot row-stack %d×%d onto %d×%d", ErrShapeMismatch, other.nr, other.nc, c.nr, c.nc)
	}
	out := c.Clone()
	out.nr += other.nr
	for i := range other.vals {
		out.Push(c.nr+other.rows[i], other.cols[i], other.vals[i])
	}
	return out, nil
}

// HStack stacks other to the right of c. Row counts must match.
func (c *Coo) HStack(other *Coo) (*Coo, error) {
	if c.nr != other.nr {
		return nil, fmt.Errorf("%w: cannot column-stack %d×%d onto %d×%d", ErrShapeMismatch, other.nr, other.nc, c.nr, c.nc)
	}
	out := c.Clone()
	out.nc += other.nc
	for i := range other.vals {
		out.Push(other.rows[i], c.nc+other.cols[i], other.vals[i])
	}
	return out, nil
}

// Add merges the triplets of two equally shaped matrices. The sum
// materialises on dense export.
func (c *Coo) Add(other *Coo) (*Coo, error) {
	if c.nr != other.nr || c.nc != other.nc {
		return nil, fmt.Errorf("%w: cannot add %d×%d to %d×%d", ErrShapeMismatch, other.nr, other.nc, c.nr, c.nc)
	}
	out := c.Clone()
	for i := range other.vals {
		out.Push(other.rows[i], other.cols[i], other.vals[i])
	}
	return out, nil
}

// Dense accumulates the triplets into a dense matrix.
func (c *Coo) Dense() *mat.Dense {
	d := mat.NewDense(c.nr, c.nc, nil)
	for i, v := range c.vals {
		d.Set(c.rows[i], c.cols[i], d.At(c.rows[i], c.cols[i])+v)
	}
	return d
}

// Clone returns a deep copy.
func (c *Coo) Clone() *Coo {
	return &Coo{
		rows: append([]int(nil), c.rows...),
		cols: append([]int(nil), c.cols...),
		vals: append([]float64(nil), c.vals...),
		nr:   c.nr,
		nc:   c.nc,
	}
}
