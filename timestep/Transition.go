package timestep

import "gonum.org/v1/gonum/mat"

// Transition packages together an experience tuple: the state the
// agent was in, the action it took there, the reward and discount it
// received for doing so, and the state it transitioned to. NextAction
// is filled only by learners that need the successor action; others
// leave it as a zero vector of the action's length.
//
// Terminal transitions carry a Discount of 0, so scaling a bootstrapped
// value by Discount removes it exactly when the episode has ended.
type Transition struct {
	State      *mat.VecDense
	Action     *mat.VecDense
	Reward     float64
	Discount   float64
	NextState  *mat.VecDense
	NextAction *mat.VecDense
}

// NewTransition packages two consecutive timesteps and their actions
// into a Transition. The reward and discount are those received on
// entering nextStep.
func NewTransition(step TimeStep, action *mat.VecDense, nextStep TimeStep,
	nextAction *mat.VecDense) Transition {
	if nextAction == nil {
		nextAction = mat.NewVecDense(action.Len(), nil)
	}

	return Transition{
		State:      copyVec(step.Observation),
		Action:     action,
		Reward:     nextStep.Reward,
		Discount:   nextStep.Discount,
		NextState:  copyVec(nextStep.Observation),
		NextAction: nextAction,
	}
}

// copyVec returns a dense copy of v so that transitions never alias
// observation memory owned by an environment.
func copyVec(v mat.Vector) *mat.VecDense {
	c := mat.NewVecDense(v.Len(), nil)
	c.CloneFromVec(v)
	return c
}
