// Package optimize minimises a criterion along a fixed descent direction.
package optimize

import (
	"errors"
	"fmt"
	"math"
)

// Optimizable is a model that can be moved along a precomputed direction.
// Step(t) places the model at t times the direction from the position held
// when the direction was fixed, so Step(0) restores that position exactly.
type Optimizable interface {
	Criterion() (float64, error)
	Step(t float64)
}

// ErrNotFinite is returned when the criterion at the starting point is not
// a finite number.
var ErrNotFinite = errors.New("criterion is not finite")

// LineSearch is a backtracking line search that never accepts a step which
// raises the criterion.
type LineSearch struct {
	// InitialStep is the first step tried.
	InitialStep float64
	// Shrink multiplies the step after a rejected trial.
	Shrink float64
	// Grow multiplies the step after an accepted trial while the
	// criterion keeps falling.
	Grow float64
	// MaxShrinks bounds the number of rejected trials.
	MaxShrinks int
	// MaxGrows bounds the number of extra trials after an accepted step.
	MaxGrows int
}

// DefaultLineSearch returns the line search used by the fitting driver.
func DefaultLineSearch() LineSearch {
	return LineSearch{
		InitialStep: 1,
		Shrink:      0.5,
		Grow:        2,
		MaxShrinks:  20,
		MaxGrows:    4,
	}
}

// Result describes one line search.
type Result struct {
	Before float64
	After  float64
	Step   float64
	Trials int
}

// Minimize searches along the direction of o and leaves o at the best step
// found. When no step improves on the start, o is restored with Step(0)
// and After equals Before.
func (ls LineSearch) Minimize(o Optimizable) (Result, error) {
	before, err := o.Criterion()
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate criterion: %w", err)
	}
	if math.IsNaN(before) || math.IsInf(before, 0) {
		return Result{}, ErrNotFinite
	}
	res := Result{Before: before, After: before}

	eval := func(t float64) (float64, error) {
		o.Step(t)
		res.Trials++
		c, err := o.Criterion()
		if err != nil {
			return 0, fmt.Errorf("failed to evaluate criterion at step %g: %w", t, err)
		}
		if math.IsNaN(c) {
			return math.Inf(1), nil
		}
		return c, nil
	}

	t := ls.InitialStep
	var c float64
	accepted := false
	for i := 0; i <= ls.MaxShrinks; i++ {
		if c, err = eval(t); err != nil {
			o.Step(0)
			return Result{}, err
		}
		if c < before {
			accepted = true
			break
		}
		t *= ls.Shrink
	}
	if !accepted {
		o.Step(0)
		return res, nil
	}
	res.Step, res.After = t, c

	for i := 0; i < ls.MaxGrows; i++ {
		next := t * ls.Grow
		nc, err := eval(next)
		if err != nil {
			o.Step(0)
			return Result{}, err
		}
		if nc >= res.After {
			break
		}
		t, res.Step, res.After = next, next, nc
	}
	o.Step(res.Step)
	return res, nil
}
