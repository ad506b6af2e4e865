package mountaincar

import (
	"math"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	// Commonly used goal position
	GoalPosition float64 = 0.45
)

// Goal implements the classic control task of reaching a goal on
// Mountain Car. In this task, the agent must learn to drive the car
// up the hill and reach the goal state. Since the car is underpowered,
// it must rock back and forth from hill to hill until it reaches the
// goal.
//
// Rewards are -1 on each timestep and 0 for the action which
// transitions the car to the goal.
//
// Episodes end after a step limit or when the car reaches the goal
// state.
type Goal struct {
	environment.Starter
	goalEnder environment.Ender
	stepEnder environment.Ender
	goalX     float64 // x position of goal
}

// NewGoal creates and returns a new Goal task given a Starter, which
// determines the starting states; the maximum number of episode
// steps; and the goal x position.
func NewGoal(s environment.Starter, episodeSteps int, goalX float64) *Goal {
	stepEnder := environment.NewStepLimit(episodeSteps)

	interval := []r1.Interval{{Min: math.Inf(-1), Max: goalX}}
	positionIndex := []int{0}
	goalEnder := environment.NewIntervalLimit(interval, positionIndex,
		timestep.TerminalStateReached)

	return &Goal{s, goalEnder, stepEnder, goalX}
}

// AtGoal returns a boolean indicating whether or not the argument
// state is the goal state
func (g *Goal) AtGoal(state mat.Matrix) bool {
	return state.At(0, 0) >= g.goalX
}

// GetReward returns the reward for a given state and action, resulting
// in a given next state. Since this is a cost-to-goal task, rewards
// are -1.0 for all actions, except for an action which leads to the
// goal state, which results in a reward of 0.0
func (g *Goal) GetReward(state, action, nextState mat.Vector) float64 {
	if nextState.AtVec(0) >= g.goalX {
		return 0.0
	}
	return -1.0
}

// Min returns the minimum attainable reward over all timesteps
func (g *Goal) Min() float64 { return -1.0 }

// Max returns the maximum attainable reward over all timesteps
func (g *Goal) Max() float64 { return 0.0 }

// RewardSpec returns the reward specification of the Task
func (g *Goal) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{g.Min()})
	upperBound := mat.NewVecDense(1, []float64{g.Max()})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Discrete)
}

// End determines if a timestep is the last timestep in the episode.
// If so, it changes the TimeStep's StepType to timestep.Last and
// records why the episode ended. A Goal task ends episodes both when
// the car reaches the goal and when the step limit is hit, so both
// enders are consulted in turn.
func (g *Goal) End(t *timestep.TimeStep) bool {
	// Check if the goal was reached, modifying t if appropriate
	if end := g.goalEnder.End(t); end {
		return true
	}

	// Check if the max steps were reached, modifying t if appropriate
	if end := g.stepEnder.End(t); end {
		return true
	}
	return false
}

// DefaultGoalStarter returns a Starter drawing the car's starting
// position uniformly from [-0.6, -0.4] with zero starting velocity
func DefaultGoalStarter(seed uint64) environment.UniformStarter {
	bounds := []r1.Interval{
		{Min: -0.6, Max: -0.4},
		{Min: 0.0, Max: 0.0},
	}
	return environment.NewUniformStarter(bounds, seed)
}
