package lininvbox

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DesignMatrix pairs an equation with the sparse coefficient matrix G of the
// linear system G·m = d. Column count always equals the equation's parameter
// count.
type DesignMatrix struct {
	eq  *Equation
	coo *Coo
}

// NewDesignMatrix wraps a triplet matrix with its equation, validating that
// the column count matches the equation's parameters.
func NewDesignMatrix(eq *Equation, m *Coo) (*DesignMatrix, error) {
	if eq == nil || m == nil {
		return nil, fmt.Errorf("%w: design matrix needs an equation and a matrix", ErrInvalidArgument)
	}
	if _, nc := m.Dims(); nc != eq.NumParams() {
		return nil, fmt.Errorf("%w: matrix has %d columns, equation has %d parameters", ErrShapeMismatch, nc, eq.NumParams())
	}
	return &DesignMatrix{eq: eq.clone(), coo: m.Clone()}, nil
}

// NewConstantCoeffs builds the single-term design matrix of a constant
// (indicator) term.
func NewConstantCoeffs(t *Term) (*DesignMatrix, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil term", ErrInvalidArgument)
	}
	if t.kind != TermConstant {
		return nil, fmt.Errorf("%w: term %q has kind %q, want %q", ErrInvalidArgument, t.name, t.kind, TermConstant)
	}
	eq, err := NewEquation(t)
	if err != nil {
		return nil, err
	}
	m, err := constantCoeffs(eq.terms[0])
	if err != nil {
		return nil, err
	}
	return &DesignMatrix{eq: eq, coo: m}, nil
}

// NewInterpolationCoeffs builds the single-term design matrix of a
// piecewise-linear interpolation term.
func NewInterpolationCoeffs(t *Term) (*DesignMatrix, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil term", ErrInvalidArgument)
	}
	if t.kind != TermLinearInterpolation {
		return nil, fmt.Errorf("%w: term %q has kind %q, want %q", ErrInvalidArgument, t.name, t.kind, TermLinearInterpolation)
	}
	eq, err := NewEquation(t)
	if err != nil {
		return nil, err
	}
	m, err := interpolationCoeffs(eq.terms[0])
	if err != nil {
		return nil, err
	}
	return &DesignMatrix{eq: eq, coo: m}, nil
}

// BuildDesignMatrix dispatches to the term's coefficient builder.
func BuildDesignMatrix(t *Term) (*DesignMatrix, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil term", ErrInvalidArgument)
	}
	switch t.kind {
	case TermConstant:
		return NewConstantCoeffs(t)
	case TermLinearInterpolation:
		return NewInterpolationCoeffs(t)
	}
	return nil, fmt.Errorf("%w: term kind %q, choose from %v", ErrUnknownKind, t.kind, SupportedTermKinds)
}

// Concat joins another design matrix horizontally: the equations merge and
// the coefficient columns of other are appended after this matrix's columns.
// Both matrices must describe the same observation rows.
func (g *DesignMatrix) Concat(other *DesignMatrix) (*DesignMatrix, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: nil design matrix", ErrInvalidArgument)
	}
	m, err := g.coo.HStack(other.coo)
	if err != nil {
		return nil, err
	}
	return &DesignMatrix{eq: g.eq.Merge(other.eq), coo: m}, nil
}

// Append stacks another design matrix's rows below this one, keeping the same
// equation. Used to grow an observation set term-structure unchanged.
func (g *DesignMatrix) Append(other *DesignMatrix) (*DesignMatrix, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: nil design matrix", ErrInvalidArgument)
	}
	m, err := g.coo.VStack(other.coo)
	if err != nil {
		return nil, err
	}
	return &DesignMatrix{eq: g.eq.clone(), coo: m}, nil
}

// Equation returns the term map the matrix columns are indexed by.
func (g *DesignMatrix) Equation() *Equation { return g.eq }

// Matrix returns the sparse triplet payload.
func (g *DesignMatrix) Matrix() *Coo { return g.coo }

// Dims returns the matrix shape.
func (g *DesignMatrix) Dims() (int, int) { return g.coo.Dims() }

// Dense exports the coefficients as a dense matrix.
func (g *DesignMatrix) Dense() *mat.Dense { return g.coo.Dense() }

// Clone deep-copies the design matrix. Batch drivers that mutate observation
// rows must clone first; the container has no copy-on-write.
func (g *DesignMatrix) Clone() *DesignMatrix {
	return &DesignMatrix{eq: g.eq.clone(), coo: g.coo.Clone()}
}

// DataArray is the observed data vector d, stored as an N×1 column.
type DataArray struct {
	vals []float64
}

// NewDataArray wraps observation values as a data column vector.
func NewDataArray(vals []float64) (*DataArray, error) {
	if len(vals) == 0 {
		return nil, fmt.Errorf("%w: empty data array", ErrInvalidArgument)
	}
	return &DataArray{vals: append([]float64(nil), vals...)}, nil
}

// NewDataArrayFromDense accepts an N×1 or 1×N dense matrix, transposing row
// vectors so the stored shape is always a column.
func NewDataArrayFromDense(d *mat.Dense) (*DataArray, error) {
	nr, nc := d.Dims()
	if nr != 1 && nc != 1 {
		return nil, fmt.Errorf("%w: array must be 1-dimensional, got %d×%d", ErrShapeMismatch, nr, nc)
	}
	vals := make([]float64, nr*nc)
	for i := range vals {
		if nc == 1 {
			vals[i] = d.At(i, 0)
		} else {
			vals[i] = d.At(0, i)
		}
	}
	return NewDataArray(vals)
}

// Append stacks another data array below this one, returning a new array.
func (d *DataArray) Append(other *DataArray) (*DataArray, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: nil data array", ErrInvalidArgument)
	}
	return &DataArray{vals: append(append([]float64(nil), d.vals...), other.vals...)}, nil
}

// Len returns the number of observations.
func (d *DataArray) Len() int { return len(d.vals) }

// Values returns a copy of the observations.
func (d *DataArray) Values() []float64 { return append([]float64(nil), d.vals...) }

// Vector returns the data as a gonum column vector.
func (d *DataArray) Vector() *mat.VecDense {
	return mat.NewVecDense(len(d.vals), append([]float64(nil), d.vals...))
}

// Clone deep-copies the data array.
func (d *DataArray) Clone() *DataArray {
	return &DataArray{vals: append([]float64(nil), d.vals...)}
}

// ModelArray binds a recovered model vector to the equation that indexed it,
// so model values can be sliced back out per named term.
type ModelArray struct {
	eq   *Equation
	vals []float64
}

// NewModelArray wraps model values with their equation. Values beyond the
// equation's parameter count (Lagrange multipliers of a constrained solve)
// are discarded; fewer values than parameters is an error.
func NewModelArray(eq *Equation, vals []float64) (*ModelArray, error) {
	if eq == nil {
		return nil, fmt.Errorf("%w: model array needs an equation", ErrInvalidArgument)
	}
	if len(vals) < eq.NumParams() {
		return nil, fmt.Errorf("%w: %d model values for %d parameters", ErrShapeMismatch, len(vals), eq.NumParams())
	}
	m := &ModelArray{
		eq:   eq.clone(),
		vals: append([]float64(nil), vals[:eq.NumParams()]...),
	}
	for _, t := range m.eq.terms {
		t.values = m.vals[t.offset : t.offset+t.NumParams()]
	}
	return m, nil
}

// Equation returns the model's term map snapshot, with recovered values
// dumped onto each term record.
func (m *ModelArray) Equation() *Equation { return m.eq }

// Len returns the number of model parameters.
func (m *ModelArray) Len() int { return len(m.vals) }

// Values returns a copy of the full model vector.
func (m *ModelArray) Values() []float64 { return append([]float64(nil), m.vals...) }

// Vector returns the model as a gonum column vector.
func (m *ModelArray) Vector() *mat.VecDense {
	return mat.NewVecDense(len(m.vals), append([]float64(nil), m.vals...))
}

// TermValues slices the recovered values belonging to one named term.
func (m *ModelArray) TermValues(name string) ([]float64, error) {
	t, err := m.eq.Term(name)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), m.vals[t.offset:t.offset+t.NumParams()]...), nil
}
