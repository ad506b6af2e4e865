// Package environment outlines the interfaces and structs needed to implement
// concrete environments
package environment

import (
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines when an episode ends. Enders modify a TimeStep
// in-place, setting its StepType to timestep.Last and recording why
// the episode ended.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme, starting states, and episode
// ends for taking actions in some environment. A single environment
// may have many tasks. For example, in a pendulum environment both
// swinging the pendulum up and keeping the pendulum from spinning
// quickly are legal tasks.
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum attainable rewards
	Min() float64
	Max() float64
	RewardSpec() Spec
}

// Environment implements a simulated environment on which a Task is
// completed. Step takes the next action of the agent and returns the
// resulting TimeStep together with a flag indicating whether the
// episode has ended.
type Environment interface {
	Task
	Reset() timestep.TimeStep
	Step(action mat.Vector) (timestep.TimeStep, bool)
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}
