package mountaincar

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// fixedStarter returns a Starter that always starts episodes at the
// state (position, velocity)
func fixedStarter(position, velocity float64) environment.Starter {
	bounds := []r1.Interval{
		{Min: position, Max: position},
		{Min: velocity, Max: velocity},
	}
	return environment.NewUniformStarter(bounds, 1)
}

func TestContinuousStepPhysics(t *testing.T) {
	task := NewGoal(fixedStarter(-0.5, 0.0), 1000, GoalPosition)
	m, firstStep := NewContinuous(task, 0.99)

	if firstStep.Observation.AtVec(0) != -0.5 ||
		firstStep.Observation.AtVec(1) != 0.0 {
		t.Fatalf("start: expected state (-0.5, 0), got %v",
			firstStep.Observation)
	}

	step, done := m.Step(mat.NewVecDense(1, []float64{1.0}))
	if done {
		t.Error("step: episode should not end on the first step")
	}

	wantVelocity := 1.0*Power - Gravity*math.Cos(3*-0.5)
	wantPosition := -0.5 + wantVelocity

	if math.Abs(step.Observation.AtVec(1)-wantVelocity) > 1e-10 {
		t.Errorf("step: expected velocity %v, got %v", wantVelocity,
			step.Observation.AtVec(1))
	}
	if math.Abs(step.Observation.AtVec(0)-wantPosition) > 1e-10 {
		t.Errorf("step: expected position %v, got %v", wantPosition,
			step.Observation.AtVec(0))
	}

	// Rewards are -1 until the goal is reached
	if step.Reward != -1.0 {
		t.Errorf("step: expected reward -1, got %v", step.Reward)
	}
}

func TestContinuousGoalTermination(t *testing.T) {
	task := NewGoal(fixedStarter(0.44, MaxSpeed), 1000, GoalPosition)
	m, _ := NewContinuous(task, 0.99)

	step, done := m.Step(mat.NewVecDense(1, []float64{1.0}))

	if !done || !step.Last() {
		t.Fatal("step: episode should end when the car passes the goal")
	}
	if step.EndType != timestep.TerminalStateReached {
		t.Errorf("step: expected end type %v, got %v",
			timestep.TerminalStateReached, step.EndType)
	}

	// Reaching a terminal state zeroes the discount so that no value
	// is bootstrapped past the end of the episode
	if step.Discount != 0.0 {
		t.Errorf("step: terminal step should zero the discount, got %v",
			step.Discount)
	}
	if step.Reward != 0.0 {
		t.Errorf("step: transitioning to the goal should give reward 0, "+
			"got %v", step.Reward)
	}
}

func TestContinuousLeftWallStopsCar(t *testing.T) {
	task := NewGoal(fixedStarter(MinPosition+0.01, -MaxSpeed), 1000,
		GoalPosition)
	m, _ := NewContinuous(task, 0.99)

	step, _ := m.Step(mat.NewVecDense(1, []float64{MinContinuousAction}))

	if step.Observation.AtVec(0) != MinPosition {
		t.Errorf("step: expected car at the left wall %v, got %v",
			MinPosition, step.Observation.AtVec(0))
	}
	if step.Observation.AtVec(1) != 0.0 {
		t.Errorf("step: car should stop dead at the left wall, got "+
			"velocity %v", step.Observation.AtVec(1))
	}
}
