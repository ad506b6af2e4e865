// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be: the first
// step in an episode, a middle step, or the last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType describes why an episode ended. Steps that do not end their
// episode have the zero value NotEnded.
type EndType int

const (
	NotEnded EndType = iota

	// TerminalStateReached denotes that the episode ended in a true
	// terminal state of the environment
	TerminalStateReached

	// Timeout denotes that the episode was cut off at a step limit
	Timeout
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	default:
		return "NotEnded"
	}
}

// TimeStep packages together a single timestep in an environment. The
// Reward and Discount fields refer to the reward received and the
// discount to apply on transitioning into the step's Observation.
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
	EndType     EndType
}

// New returns a new TimeStep with the argument fields
func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, r, d, o, n, NotEnded}
}

// SetEnd records why the episode ended at this step. Ending in a
// terminal state zeroes the step's discount so that no value is
// bootstrapped past the end of the episode. Timeout cutoffs leave the
// discount untouched, since the episode could have continued.
func (t *TimeStep) SetEnd(e EndType) {
	t.EndType = e
	if e == TerminalStateReached {
		t.Discount = 0.0
	}
}

// First returns whether a TimeStep is the first in an episode
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an episode
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an episode
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
