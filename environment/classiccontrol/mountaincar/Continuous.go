package mountaincar

import (
	"github.com/samuelfneumann/goddpg/environment"
	ts "github.com/samuelfneumann/goddpg/timestep"
	"github.com/samuelfneumann/goddpg/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// Continuous implements the Mountain Car environment with continuous
// actions. Actions are 1-dimensional and continuous, determining the
// force to apply to the car and in which direction to apply this
// force. Actions are bounded between [-1, 1] = [MinContinuousAction,
// MaxContinuousAction], and actions outside of this range are clipped
// to stay within it.
//
// Continuous implements the environment.Environment interface
type Continuous struct {
	*base
}

// NewContinuous creates a new continuous action Mountain Car
// environment with the argument task
func NewContinuous(t environment.Task, discount float64) (*Continuous,
	ts.TimeStep) {
	baseEnv, firstStep := newBase(t, discount)

	return &Continuous{baseEnv}, firstStep
}

// ActionSpec returns the action specification of the environment
func (m *Continuous) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{MinContinuousAction})
	upperBound := mat.NewVecDense(ActionDims, []float64{MaxContinuousAction})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// Step takes one environmental step given action a and returns the
// next timestep as a timestep.TimeStep and a bool indicating whether
// or not the episode has ended. Actions are 1-dimensional and
// continuous, consisting of the horizontal force to apply to the car.
// Actions outside the legal range of [-1, 1] are clipped to stay
// within this range.
func (m *Continuous) Step(a mat.Vector) (ts.TimeStep, bool) {
	// Ensure action is 1-dimensional
	if a.Len() > ActionDims {
		panic("step: actions should be 1-dimensional")
	}

	// Clip action to legal range
	force := floatutils.Clip(a.AtVec(0), MinContinuousAction,
		MaxContinuousAction)

	newState := m.nextState(force)

	return m.update(a, newState)
}
