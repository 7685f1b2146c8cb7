// Package lininvbox assembles and solves linear inverse problems of the form
// G·m = d. Named terms map labeled observations onto model parameter columns,
// sparse builders fill the design matrix in coordinate-triplet form, and the
// Inversion orchestrator solves the dense normal equations with optional
// exact linear constraints and Tikhonov regularisation.
package lininvbox

import (
	"fmt"
	"sort"
)

// TermKind selects the coding scheme of a term.
type TermKind string

const (
	// TermConstant codes each distinct label as a one-hot indicator column.
	TermConstant TermKind = "CONSTANT"
	// TermLinearInterpolation codes numeric labels as weights between
	// adjacent interpolation nodes.
	TermLinearInterpolation TermKind = "LINEAR INTERPOLATION"
)

// SupportedTermKinds lists the valid term kinds.
var SupportedTermKinds = []TermKind{TermConstant, TermLinearInterpolation}

// Term is a named group of model parameters sharing one coding scheme.
// Its unique labels are the interpolation nodes or category levels; each one
// owns a model parameter column once the term is part of an Equation.
type Term struct {
	name   string
	kind   TermKind
	sign   int
	raw    []Label
	unique []Label
	local  map[Label]int
	offset int // global index of the term's first model parameter

	// metadata recorded when constraint/regularisation bundles and solved
	// models are built against the owning equation
	constraints    map[string]float64
	regularisation *RegSpec
	values         []float64
}

// TermOption adjusts Term construction.
type TermOption func(*Term)

// WithSign sets the sign (+1 or -1) multiplied into all of the term's
// coefficients.
func WithSign(sign int) TermOption {
	return func(t *Term) { t.sign = sign }
}

// WithUniqueLabels supplies the distinct labels explicitly instead of
// deriving them from the raw labels. Callers with tricky data may want to
// order the levels themselves.
func WithUniqueLabels(unique []Label) TermOption {
	return func(t *Term) {
		t.unique = make([]Label, len(unique))
		copy(t.unique, unique)
	}
}

// NewTerm validates and builds a term from the per-observation raw labels.
// Unless supplied, the unique labels are the sorted distinct raw label
// values. Interpolation terms require numeric labels and at least two nodes
// in strictly ascending order.
func NewTerm(name string, kind TermKind, labels []Label, opts ...TermOption) (*Term, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: term name must be a non-empty string", ErrInvalidArgument)
	}
	if kind != TermConstant && kind != TermLinearInterpolation {
		return nil, fmt.Errorf("%w: term kind %q, choose from %v", ErrUnknownKind, kind, SupportedTermKinds)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: term %q has no labels", ErrInvalidArgument, name)
	}

	t := &Term{
		name:        name,
		kind:        kind,
		sign:        1,
		raw:         append([]Label(nil), labels...),
		constraints: map[string]float64{},
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.sign != 1 && t.sign != -1 {
		return nil, fmt.Errorf("%w: sign must be 1 or -1, got %d", ErrInvalidArgument, t.sign)
	}
	if t.unique == nil {
		t.unique = uniqueSorted(t.raw)
	}

	if kind == TermLinearInterpolation {
		for _, l := range t.raw {
			if !l.IsNumeric() {
				return nil, fmt.Errorf("%w: interpolation term %q has non-numeric label %q", ErrInvalidArgument, name, l)
			}
		}
		if len(t.unique) < 2 {
			return nil, fmt.Errorf("%w: interpolation term %q needs at least 2 nodes, got %d", ErrInvalidArgument, name, len(t.unique))
		}
		if !sort.SliceIsSorted(t.unique, func(i, j int) bool { return t.unique[i].Less(t.unique[j]) }) {
			return nil, fmt.Errorf("%w: interpolation nodes of term %q must be sorted ascending", ErrInvalidArgument, name)
		}
	}

	t.local = make(map[Label]int, len(t.unique))
	for i, l := range t.unique {
		if _, dup := t.local[l]; dup {
			return nil, fmt.Errorf("%w: duplicate unique label %q in term %q", ErrInvalidArgument, l, name)
		}
		t.local[l] = i
	}
	return t, nil
}

// Name returns the term's unique name within an equation.
func (t *Term) Name() string { return t.name }

// Kind returns the term's coding scheme.
func (t *Term) Kind() TermKind { return t.kind }

// Sign returns the coefficient sign multiplier.
func (t *Term) Sign() int { return t.sign }

// RawLabels returns the per-observation labels.
func (t *Term) RawLabels() []Label { return append([]Label(nil), t.raw...) }

// UniqueLabels returns the distinct labels (category levels or nodes).
func (t *Term) UniqueLabels() []Label { return append([]Label(nil), t.unique...) }

// NumParams returns the number of model parameters the term owns.
func (t *Term) NumParams() int { return len(t.unique) }

// Offset returns the global model index of the term's first parameter.
func (t *Term) Offset() int { return t.offset }

// ModelIndices returns the global model column indices of the term.
func (t *Term) ModelIndices() []int {
	inds := make([]int, len(t.unique))
	for i := range inds {
		inds[i] = t.offset + i
	}
	return inds
}

// Index returns the global model index of the given unique label.
func (t *Term) Index(label Label) (int, error) {
	i, ok := t.local[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q not in %v of term %q", ErrLabelNotFound, label, labelStrings(t.unique), t.name)
	}
	return t.offset + i, nil
}

// Constraints returns the constraint metadata recorded on the term, keyed by
// target label (or the SUM kind) with the target value.
func (t *Term) Constraints() map[string]float64 {
	out := make(map[string]float64, len(t.constraints))
	for k, v := range t.constraints {
		out[k] = v
	}
	return out
}

// Regularisation returns the regularisation metadata recorded on the term,
// or nil when the term is unregularised.
func (t *Term) Regularisation() *RegSpec {
	if t.regularisation == nil {
		return nil
	}
	spec := *t.regularisation
	return &spec
}

// Values returns the recovered model values for the term after a solve.
func (t *Term) Values() []float64 { return append([]float64(nil), t.values...) }

func (t *Term) clone() *Term {
	c := &Term{
		name:        t.name,
		kind:        t.kind,
		sign:        t.sign,
		raw:         append([]Label(nil), t.raw...),
		unique:      append([]Label(nil), t.unique...),
		offset:      t.offset,
		constraints: make(map[string]float64, len(t.constraints)),
	}
	c.local = make(map[Label]int, len(c.unique))
	for i, l := range c.unique {
		c.local[l] = i
	}
	for k, v := range t.constraints {
		c.constraints[k] = v
	}
	if t.regularisation != nil {
		spec := *t.regularisation
		c.regularisation = &spec
	}
	if t.values != nil {
		c.values = append([]float64(nil), t.values...)
	}
	return c
}

// Equation is the ordered map of terms spanning a whole problem. It owns the
// assignment of global model column indices: parameters of distinct terms are
// disjoint and contiguous in term insertion order.
type Equation struct {
	terms []*Term
	index map[string]int
	npars int
}

// NewEquation builds an equation from terms in the given order. Terms are
// cloned so later mutation of the inputs cannot alias into the equation.
func NewEquation(terms ...*Term) (*Equation, error) {
	eq := &Equation{index: map[string]int{}}
	for _, t := range terms {
		if t == nil {
			return nil, fmt.Errorf("%w: nil term", ErrInvalidArgument)
		}
		if _, dup := eq.index[t.name]; dup {
			return nil, fmt.Errorf("%w: duplicate term name %q", ErrInvalidArgument, t.name)
		}
		eq.index[t.name] = len(eq.terms)
		eq.terms = append(eq.terms, t.clone())
	}
	eq.mapModelIndices()
	return eq, nil
}

// mapModelIndices re-derives the global column index of every parameter.
// Mandatory after any structural change: previously assigned indices are
// invalid once the term set or order differs.
func (e *Equation) mapModelIndices() {
	offset := 0
	for _, t := range e.terms {
		t.offset = offset
		offset += t.NumParams()
	}
	e.npars = offset
}

// Merge combines two equations into a new one. Both term maps are deep
// copied; on a name collision the other equation's term overrides this one in
// place. Model indices are reassigned across the merged term order.
func (e *Equation) Merge(other *Equation) *Equation {
	merged := &Equation{index: map[string]int{}}
	for _, t := range e.terms {
		merged.index[t.name] = len(merged.terms)
		merged.terms = append(merged.terms, t.clone())
	}
	for _, t := range other.terms {
		if i, ok := merged.index[t.name]; ok {
			merged.terms[i] = t.clone()
			continue
		}
		merged.index[t.name] = len(merged.terms)
		merged.terms = append(merged.terms, t.clone())
	}
	merged.mapModelIndices()
	return merged
}

// Term retrieves a term by name.
func (e *Equation) Term(name string) (*Term, error) {
	i, ok := e.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q not in equation %v", ErrTermNotFound, name, e.TermNames())
	}
	return e.terms[i], nil
}

// Has reports whether the equation contains a term with the given name.
func (e *Equation) Has(name string) bool {
	_, ok := e.index[name]
	return ok
}

// Terms returns the terms in insertion order.
func (e *Equation) Terms() []*Term { return append([]*Term(nil), e.terms...) }

// TermNames returns the term names in insertion order.
func (e *Equation) TermNames() []string {
	names := make([]string, len(e.terms))
	for i, t := range e.terms {
		names[i] = t.name
	}
	return names
}

// NumParams returns the total number of model parameters across all terms.
func (e *Equation) NumParams() int { return e.npars }

// ChangeTermName renames a term, keeping its position and indices.
func (e *Equation) ChangeTermName(oldname, newname string) error {
	if newname == "" {
		return fmt.Errorf("%w: new term name must be a non-empty string", ErrInvalidArgument)
	}
	if e.Has(newname) {
		return fmt.Errorf("%w: term %q already exists", ErrInvalidArgument, newname)
	}
	i, ok := e.index[oldname]
	if !ok {
		return fmt.Errorf("%w: %q not in equation %v", ErrTermNotFound, oldname, e.TermNames())
	}
	e.terms[i].name = newname
	delete(e.index, oldname)
	e.index[newname] = i
	return nil
}

// ModifySign flips the sign of a single term in place.
func (e *Equation) ModifySign(name string, sign int) error {
	if sign != 1 && sign != -1 {
		return fmt.Errorf("%w: sign must be 1 or -1, got %d", ErrInvalidArgument, sign)
	}
	t, err := e.Term(name)
	if err != nil {
		return err
	}
	t.sign = sign
	return nil
}

func (e *Equation) clone() *Equation {
	c := &Equation{index: make(map[string]int, len(e.index)), npars: e.npars}
	for _, t := range e.terms {
		c.index[t.name] = len(c.terms)
		c.terms = append(c.terms, t.clone())
	}
	return c
}
