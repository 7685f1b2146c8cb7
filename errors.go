package lininvbox

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidArgument signals that any of the given arguments to call the function was invalid.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownKind signals a term, constraint or regularisation kind outside the supported set.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrLabelNotFound signals a raw or target label missing from a term's unique labels.
	ErrLabelNotFound = errors.New("label not found")
	// ErrTermNotFound signals a term name missing from an equation.
	ErrTermNotFound = errors.New("term not found")
	// ErrShapeMismatch signals incompatible shapes when stacking or multiplying containers.
	ErrShapeMismatch = errors.New("shape mismatch")
)

var (
	ErrNearSingular    = &ConditionError{isExactlySingular: false}
	ErrExactlySingular = &ConditionError{isExactlySingular: true}

	matConditionError    = mat.Condition(0)           // matrix singular or near-singular
	matConditionErrorInf = mat.Condition(math.Inf(1)) // matrix exactly singular
)

// ConditionError reports that the assembled system was singular or close to it.
type ConditionError struct {
	err               error
	isExactlySingular bool
}

func (e ConditionError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e ConditionError) Is(err error) bool {
	if condErr, ok := err.(*ConditionError); ok {
		return e.isExactlySingular == condErr.isExactlySingular
	}
	return false
}

func (e ConditionError) Unwrap() error {
	return e.err
}

func wrapAsConditionError(err error) *ConditionError {
	return &ConditionError{
		err:               err,
		isExactlySingular: errors.Is(err, matConditionErrorInf),
	}
}
