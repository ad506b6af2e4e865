package pendulum

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// fixedStarter returns a Starter that always starts episodes at the
// state (th, thdot)
func fixedStarter(th, thdot float64) environment.Starter {
	bounds := []r1.Interval{
		{Min: th, Max: th},
		{Min: thdot, Max: thdot},
	}
	return environment.NewUniformStarter(bounds, 1)
}

func TestContinuousStepPhysics(t *testing.T) {
	task := NewSwingUp(fixedStarter(0.0, 0.0), 1000)
	p, firstStep := NewContinuous(task, 0.99)

	if firstStep.Observation.AtVec(0) != 0.0 ||
		firstStep.Observation.AtVec(1) != 0.0 {
		t.Fatalf("start: expected state (0, 0), got %v", firstStep.Observation)
	}

	// Applying torque u from the hanging rest state (θ=0, ω=0) results
	// in ω' = (3/(mℓ²))u·dt and θ' = ω'·dt
	step, done := p.Step(mat.NewVecDense(1, []float64{1.0}))
	if done {
		t.Error("step: episode should not end on the first step")
	}

	wantThdot := 3.0 / (Mass * Length * Length) * 1.0 * 0.05
	wantTh := wantThdot * 0.05

	if math.Abs(step.Observation.AtVec(1)-wantThdot) > 1e-10 {
		t.Errorf("step: expected angular velocity %v, got %v", wantThdot,
			step.Observation.AtVec(1))
	}
	if math.Abs(step.Observation.AtVec(0)-wantTh) > 1e-10 {
		t.Errorf("step: expected angle %v, got %v", wantTh,
			step.Observation.AtVec(0))
	}

	// The swing-up reward is the cosine of the new pendulum angle
	if math.Abs(step.Reward-math.Cos(wantTh)) > 1e-10 {
		t.Errorf("step: expected reward %v, got %v", math.Cos(wantTh),
			step.Reward)
	}
}

func TestContinuousClipsTorque(t *testing.T) {
	clipped, _ := NewContinuous(NewSwingUp(fixedStarter(0.5, 0.0), 1000), 0.99)
	bounded, _ := NewContinuous(NewSwingUp(fixedStarter(0.5, 0.0), 1000), 0.99)

	// Torques outside [-2, 2] should behave exactly like the nearest
	// legal torque
	stepClipped, _ := clipped.Step(mat.NewVecDense(1, []float64{100.0}))
	stepBounded, _ := bounded.Step(mat.NewVecDense(1,
		[]float64{MaxContinuousAction}))

	for i := 0; i < ObservationDims; i++ {
		if stepClipped.Observation.AtVec(i) != stepBounded.Observation.AtVec(i) {
			t.Errorf("step: clipped action led to state %v, expected %v",
				stepClipped.Observation, stepBounded.Observation)
		}
	}
}

func TestContinuousStepLimit(t *testing.T) {
	cutoff := 5
	p, _ := NewContinuous(NewSwingUp(fixedStarter(0.0, 0.0), cutoff), 0.99)

	action := mat.NewVecDense(1, []float64{0.0})
	var step timestep.TimeStep
	var done bool
	for i := 0; i < cutoff; i++ {
		if done {
			t.Fatalf("step: episode ended early at step %v", i)
		}
		step, done = p.Step(action)
	}

	if !done || !step.Last() {
		t.Error("step: episode should end at the step limit")
	}
	if step.EndType != timestep.Timeout {
		t.Errorf("step: expected end type %v, got %v", timestep.Timeout,
			step.EndType)
	}

	// Cutoff steps keep their discount so that the return can still be
	// bootstrapped
	if step.Discount != 0.99 {
		t.Errorf("step: cutoff should not zero the discount, got %v",
			step.Discount)
	}

	// Reset starts a new episode
	first := p.Reset()
	if !first.First() || first.Number != 0 {
		t.Errorf("reset: expected first timestep, got %v", first)
	}
}

func TestNormalizeAngleWrapsFullCircle(t *testing.T) {
	bounds := r1.Interval{Min: -math.Pi, Max: math.Pi}

	tests := []struct{ in, want float64 }{
		{0.0, 0.0},
		{math.Pi / 2, math.Pi / 2},
		{math.Pi + 0.1, -math.Pi + 0.1},
		{-math.Pi - 0.1, math.Pi - 0.1},
	}

	for _, test := range tests {
		got := normalizeAngle(test.in, bounds)
		if math.Abs(got-test.want) > 1e-10 {
			t.Errorf("normalizeAngle(%v): expected %v, got %v", test.in,
				test.want, got)
		}
	}
}
