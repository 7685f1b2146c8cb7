package lininvbox

import (
	"fmt"

	"lininvbox/logger"
)

// ConstraintKind selects how a single constraint row is built.
type ConstraintKind string

const (
	// ConstraintConstant fixes one parameter, addressed by its label, to a
	// target value.
	ConstraintConstant ConstraintKind = "CONSTANT"
	// ConstraintSum forces the sum of a whole term's parameters to a target
	// value.
	ConstraintSum ConstraintKind = "SUM"
)

// SupportedConstraintKinds lists the valid constraint kinds.
var SupportedConstraintKinds = []ConstraintKind{ConstraintConstant, ConstraintSum}

// Constraint is one exact linear equality condition on a named term.
type Constraint struct {
	Term  string
	Kind  ConstraintKind
	Label Label // target parameter for CONSTANT constraints
	Value float64
}

// Constraints owns the (F, h) pair enforcing exact equality constraints via
// Lagrange multipliers: F has one row per scalar constraint and npars
// columns, h the matching right-hand-side values.
type Constraints struct {
	eq *Equation
	f  *Coo
	h  []float64

	// Diagnostics collects the non-fatal conditions hit while building:
	// skipped terms missing from the equation and an empty constraint list.
	Diagnostics []string
}

// NewConstraints builds the constraint bundle for an equation. Constraints
// referencing an unknown term are skipped with a warning, so a partially
// valid configuration still applies every recognised entry. An unknown
// constraint kind is a configuration error. Applied constraints are also
// recorded on the equation's term metadata.
func NewConstraints(eq *Equation, cons []Constraint) (*Constraints, error) {
	if eq == nil {
		return nil, fmt.Errorf("%w: constraints need an equation", ErrInvalidArgument)
	}
	c := &Constraints{eq: eq}
	if len(cons) == 0 {
		logger.Warn.Println("empty constraints, nothing done")
		c.Diagnostics = append(c.Diagnostics, "empty constraints, nothing done")
		return c, nil
	}

	for _, con := range cons {
		if con.Kind != ConstraintConstant && con.Kind != ConstraintSum {
			return nil, fmt.Errorf("%w: constraint kind %q on term %q, choose from %v",
				ErrUnknownKind, con.Kind, con.Term, SupportedConstraintKinds)
		}
		if !eq.Has(con.Term) {
			msg := fmt.Sprintf("term %q not in equation, skipping constraint", con.Term)
			logger.Warn.Println(msg)
			c.Diagnostics = append(c.Diagnostics, msg)
			continue
		}
		t, err := eq.Term(con.Term)
		if err != nil {
			return nil, err
		}

		var row *Coo
		var key string
		switch con.Kind {
		case ConstraintConstant:
			row, err = constantConstraintRow(t, con.Label, eq.NumParams())
			key = con.Label.String()
		case ConstraintSum:
			row, err = sumConstraintRow(t, eq.NumParams())
			key = string(ConstraintSum)
		}
		if err != nil {
			return nil, err
		}

		if c.f == nil {
			c.f = row
		} else if c.f, err = c.f.VStack(row); err != nil {
			return nil, err
		}
		c.h = append(c.h, con.Value)
		t.constraints[key] = con.Value
	}
	return c, nil
}

// Len returns the number of scalar constraint rows.
func (c *Constraints) Len() int { return len(c.h) }

// F returns the constraint coefficient matrix, or nil when no constraint was
// applied.
func (c *Constraints) F() *Coo {
	if c.f == nil {
		return nil
	}
	return c.f.Clone()
}

// H returns the constraint right-hand-side values.
func (c *Constraints) H() []float64 { return append([]float64(nil), c.h...) }
