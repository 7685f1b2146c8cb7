package lininvbox

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"lininvbox/logger"
)

// Inversion performs dense least-squares solves of G·m = d assembled from
// DesignMatrix and DataArray containers. After a successful Invert it holds
// the last-used inputs and the recovered model.
type Inversion struct {
	name string
	id   string

	g           *DesignMatrix
	d           *DataArray
	m           *ModelArray
	constraints *Constraints
}

// NewInversion creates an inversion identified by name plus its creation
// timestamp.
func NewInversion(name string) *Inversion {
	return &Inversion{
		name: name,
		id:   name + "-" + time.Now().Format("2006-01-02T15:04:05"),
	}
}

// Name returns the inversion's name.
func (inv *Inversion) Name() string { return inv.name }

// ID returns the name-plus-timestamp identifier.
func (inv *Inversion) ID() string { return inv.id }

// Design returns the design matrix of the last stored solve.
func (inv *Inversion) Design() *DesignMatrix { return inv.g }

// Data returns the data array of the last stored solve.
func (inv *Inversion) Data() *DataArray { return inv.d }

// Model returns the model recovered by the last stored solve.
func (inv *Inversion) Model() *ModelArray { return inv.m }

// Constraints returns the constraints of the last stored solve, or nil.
func (inv *Inversion) Constraints() *Constraints { return inv.constraints }

// Invert solves for the model and stores G, d, the constraints and the
// recovered model on the orchestrator. Constraints and regularisation may be
// nil, or empty bundles, in which case they are ignored.
func (inv *Inversion) Invert(g *DesignMatrix, d *DataArray, constraints *Constraints, regularisation *Regularisation) (*ModelArray, error) {
	m, err := inv.Solve(g, d, constraints, regularisation)
	if err != nil {
		return nil, err
	}
	inv.g = g
	inv.d = d
	inv.m = m
	inv.constraints = constraints
	return m, nil
}

// Solve is Invert without storing state on the orchestrator. Batch drivers
// running many independent trials use it to keep the orchestrator clean.
func (inv *Inversion) Solve(g *DesignMatrix, d *DataArray, constraints *Constraints, regularisation *Regularisation) (*ModelArray, error) {
	if g == nil || d == nil {
		return nil, fmt.Errorf("%w: invert needs a design matrix and a data array", ErrInvalidArgument)
	}
	nobs, npars := g.Dims()
	if nobs != d.Len() {
		return nil, fmt.Errorf("%w: design matrix has %d rows, data array has %d", ErrShapeMismatch, nobs, d.Len())
	}

	gd := g.Dense()
	dvals := d.Values()

	if regularisation != nil && regularisation.Active() {
		gamma := regularisation.gamma
		if gr, gc := gamma.Dims(); gr != npars || gc != npars {
			return nil, fmt.Errorf("%w: regularisation operator is %d×%d for %d parameters", ErrShapeMismatch, gr, gc, npars)
		}
		gm := gamma.Dense()
		var gg mat.Dense
		gg.Mul(gm.T(), gm)
		applyAlpha(&gg, regularisation)

		var stacked mat.Dense
		stacked.Stack(gd, &gg)
		gd = &stacked
		dvals = append(dvals, make([]float64, npars)...)
	}

	// normal equations
	var gtg mat.Dense
	gtg.Mul(gd.T(), gd)
	var gtd mat.VecDense
	gtd.MulVec(gd.T(), mat.NewVecDense(len(dvals), dvals))

	a, b := &gtg, gtd.RawVector().Data
	if constraints != nil && constraints.Len() > 0 {
		f := constraints.f
		if _, fc := f.Dims(); fc != npars {
			return nil, fmt.Errorf("%w: constraint matrix has %d columns for %d parameters", ErrShapeMismatch, fc, npars)
		}
		a, b = borderSystem(&gtg, b, f.Dense(), constraints.h)
	}

	x, err := lstsq(a, b)
	if err != nil {
		return nil, err
	}
	// drop the Lagrange multipliers, keep the model components
	return NewModelArray(g.Equation(), x[:npars])
}

// Forward predicts the data array G·m. No constraints or regularisation
// apply: it is a pure evaluation of the design matrix against a model.
func (inv *Inversion) Forward(g *DesignMatrix, m *ModelArray) (*DataArray, error) {
	if g == nil || m == nil {
		return nil, fmt.Errorf("%w: forward needs a design matrix and a model array", ErrInvalidArgument)
	}
	_, npars := g.Dims()
	if m.Len() < npars {
		return nil, fmt.Errorf("%w: model has %d values, design matrix has %d columns", ErrShapeMismatch, m.Len(), npars)
	}
	var pred mat.VecDense
	pred.MulVec(g.Dense(), mat.NewVecDense(npars, m.Values()[:npars]))
	return NewDataArray(pred.RawVector().Data)
}

// applyAlpha scales the rows of Γ = γᵀγ belonging to each regularised term by
// that term's α.
func applyAlpha(gg *mat.Dense, reg *Regularisation) {
	_, nc := gg.Dims()
	for _, t := range reg.eq.terms {
		alpha, ok := reg.alpha[t.name]
		if !ok || alpha == 1 {
			continue
		}
		for _, r := range t.ModelIndices() {
			for c := 0; c < nc; c++ {
				gg.Set(r, c, gg.At(r, c)*alpha)
			}
		}
	}
}

// borderSystem augments the normal equations with constraint rows and
// columns for the method of Lagrange multipliers:
//
//	[ GTG  Fᵀ ] [m]   [GTd]
//	[ F    0  ] [λ] = [h  ]
func borderSystem(gtg *mat.Dense, gtd []float64, f *mat.Dense, h []float64) (*mat.Dense, []float64) {
	npars, _ := gtg.Dims()
	k, _ := f.Dims()
	n := npars + k

	a := mat.NewDense(n, n, nil)
	a.Slice(0, npars, 0, npars).(*mat.Dense).Copy(gtg)
	a.Slice(0, npars, npars, n).(*mat.Dense).Copy(f.T())
	a.Slice(npars, n, 0, npars).(*mat.Dense).Copy(f)

	b := make([]float64, 0, n)
	b = append(b, gtd...)
	b = append(b, h...)
	return a, b
}

// lstsq solves the square system a·x = b by QR least squares. A singular or
// near-singular system falls back to the minimum-norm SVD solution; only a
// failed factorization propagates as a ConditionError.
func lstsq(a *mat.Dense, b []float64) ([]float64, error) {
	nr, nc := a.Dims()
	bv := mat.NewVecDense(nr, b)

	var qr mat.QR
	qr.Factorize(a)
	x := mat.NewVecDense(nc, nil)
	err := qr.SolveVecTo(x, false, bv)
	if err == nil {
		return append([]float64(nil), x.RawVector().Data...), nil
	}
	var cond mat.Condition
	if !errors.As(err, &cond) {
		return nil, err
	}
	logger.Warn.Printf("system is singular or near-singular (%v), using minimum-norm solution", err)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, wrapAsConditionError(err)
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// x = V · S⁺ · Uᵀ · b with small singular values zeroed
	var ub mat.VecDense
	ub.MulVec(u.T(), bv)
	eps := math.Nextafter(1, 2) - 1
	tol := float64(max(nr, nc)) * eps * s[0]
	for i := range s {
		if s[i] > tol {
			ub.SetVec(i, ub.AtVec(i)/s[i])
		} else {
			ub.SetVec(i, 0)
		}
	}
	x.MulVec(&v, &ub)
	return append([]float64(nil), x.RawVector().Data...), nil
}
