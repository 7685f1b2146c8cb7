package lininvbox

import (
	"fmt"
	"sort"

	"lininvbox/logger"
)

// RegKind selects the per-term smoothing operator.
type RegKind string

const (
	// RegIdentity damps the term's parameters toward zero.
	RegIdentity RegKind = "IDENTITY"
	// RegFiniteDifference penalises differences between adjacent parameters,
	// encouraging smoothness across ordered node values.
	RegFiniteDifference RegKind = "FD"
)

// SupportedRegKinds lists the valid regularisation kinds.
var SupportedRegKinds = []RegKind{RegIdentity, RegFiniteDifference}

// RegSpec configures the regularisation of one term. A zero Alpha means the
// default scale factor of 1.
type RegSpec struct {
	Kind  RegKind
	Alpha float64
}

// Regularisation owns the npars×npars Tikhonov operator γ, assembled from
// one block per regularised term embedded at the term's global offset, plus
// the per-term scale factors α applied to Γ = γᵀ·γ during a solve.
type Regularisation struct {
	eq    *Equation
	gamma *Coo
	alpha map[string]float64

	// Diagnostics collects the non-fatal conditions hit while building.
	Diagnostics []string
}

// NewRegularisation builds the regularisation bundle for an equation. Specs
// keyed by a term missing from the equation are skipped with a warning; an
// unknown operator kind is a configuration error. Blocks are assembled in
// equation term order, so the result is deterministic regardless of map
// iteration. Applied specs are also recorded on the equation's term metadata.
func NewRegularisation(eq *Equation, specs map[string]RegSpec) (*Regularisation, error) {
	if eq == nil {
		return nil, fmt.Errorf("%w: regularisation needs an equation", ErrInvalidArgument)
	}
	r := &Regularisation{eq: eq, alpha: map[string]float64{}}
	if len(specs) == 0 {
		logger.Warn.Println("empty regularisation, nothing done")
		r.Diagnostics = append(r.Diagnostics, "empty regularisation, nothing done")
		return r, nil
	}

	for _, t := range eq.terms {
		spec, ok := specs[t.name]
		if !ok {
			continue
		}
		block, err := termOperator(spec.Kind, t.NumParams())
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", t.name, err)
		}

		// shift the block to the term's global rows/columns
		full, err := NewCoo(eq.NumParams(), eq.NumParams())
		if err != nil {
			return nil, err
		}
		for i := range block.vals {
			full.Push(block.rows[i]+t.offset, block.cols[i]+t.offset, block.vals[i])
		}

		if r.gamma == nil {
			r.gamma = full
		} else if r.gamma, err = r.gamma.Add(full); err != nil {
			return nil, err
		}

		alpha := spec.Alpha
		if alpha == 0 {
			alpha = 1
		}
		r.alpha[t.name] = alpha
		t.regularisation = &RegSpec{Kind: spec.Kind, Alpha: alpha}
	}

	var unknown []string
	for name := range specs {
		if !eq.Has(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		msg := fmt.Sprintf("term %q not in equation, skipping regularisation", name)
		logger.Warn.Println(msg)
		r.Diagnostics = append(r.Diagnostics, msg)
	}
	return r, nil
}

func termOperator(kind RegKind, n int) (*Coo, error) {
	switch kind {
	case RegIdentity:
		return identityOperator(n), nil
	case RegFiniteDifference:
		return finiteDifferenceOperator(n), nil
	}
	return nil, fmt.Errorf("%w: regularisation kind %q, choose from %v", ErrUnknownKind, kind, SupportedRegKinds)
}

// Active reports whether any term ended up regularised.
func (r *Regularisation) Active() bool { return r.gamma != nil }

// Gamma returns the assembled operator γ, or nil when nothing was applied.
func (r *Regularisation) Gamma() *Coo {
	if r.gamma == nil {
		return nil
	}
	return r.gamma.Clone()
}

// Alpha returns the per-term scale factors.
func (r *Regularisation) Alpha() map[string]float64 {
	out := make(map[string]float64, len(r.alpha))
	for k, v := range r.alpha {
		out[k] = v
	}
	return out
}
