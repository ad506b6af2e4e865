// Package gym provides access to OpenAI Gym environments.
//
// All environments in the Classic Control and MuJoCo suites can be
// used, restricted to their default tasks and episode cutoffs. Only
// environments with Box observation and action spaces are supported,
// since the agents in this module are continuous-control agents.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym.
package gym

import (
	"fmt"

	env "github.com/samuelfneumann/goddpg/environment"
	ts "github.com/samuelfneumann/goddpg/timestep"
	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
)

// Environment names with known reward ranges
const (
	MountainCarContinuousV0 string = "MountainCarContinuous-v0"
	PendulumV0              string = "Pendulum-v0"
)

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment
	name string

	currentStep ts.TimeStep
	discount    float64
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite.
func New(name string, discount float64, seed uint64) (env.Environment,
	ts.TimeStep, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not create "+
			"environment: %v", err)
	}

	goGymEnv.Seed(int(seed))
	obs, err := goGymEnv.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: could not reset "+
			"environment: %v", err)
	}

	gymEnv := &GymEnv{
		Environment: goGymEnv,
		name:        name,
		discount:    discount,
	}

	t := ts.New(ts.First, 0, discount, obs, 0)
	gymEnv.currentStep = t

	return gymEnv, t, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a mat.Vector) (ts.TimeStep, bool) {
	action, ok := a.(*mat.VecDense)
	if !ok {
		action = mat.VecDenseCopyOf(a)
	}

	obs, reward, done, err := g.Environment.Step(action)
	if err != nil {
		panic(fmt.Sprintf("step: could not step GoGym environment: %v", err))
	}

	t := ts.New(ts.Mid, reward, g.discount, obs, g.CurrentTimeStep().Number+1)
	if done {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
	}
	g.currentStep = t

	return t, done
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() ts.TimeStep {
	obs, err := g.Environment.Reset()
	if err != nil {
		panic(fmt.Sprintf("reset: could not reset environment: %v", err))
	}

	t := ts.New(ts.First, 0, g.discount, obs, 0)
	g.currentStep = t

	return t
}

// CurrentTimeStep returns the current timestep in the environment
func (g *GymEnv) CurrentTimeStep() ts.TimeStep {
	return g.currentStep
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	space := g.ObservationSpace()

	var low, high, shape *mat.VecDense
	switch space.(type) {
	case *gogym.BoxSpace:
		low = space.Low()[0]
		high = space.High()[0]
		shape = mat.NewVecDense(low.Len(), nil)
	default:
		panic("observationSpec: invalid space type, package gym supports " +
			"only GoGym's BoxSpace")
	}

	return env.NewSpec(shape, env.Observation, low, high, env.Continuous)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	space := g.ActionSpace()

	var low, high, shape *mat.VecDense
	switch space.(type) {
	case *gogym.BoxSpace:
		low = space.Low()[0]
		high = space.High()[0]
		shape = mat.NewVecDense(low.Len(), nil)
	default:
		panic("actionSpec: invalid space type, package gym supports " +
			"only GoGym's BoxSpace")
	}

	return env.NewSpec(shape, env.Action, low, high, env.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (g *GymEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	low := mat.NewVecDense(1, []float64{g.discount})

	return env.NewSpec(shape, env.Discount, low, low, env.Continuous)
}

// RewardSpec returns the reward specification of the environment
func (g *GymEnv) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{g.Min()})
	upperBound := mat.NewVecDense(1, []float64{g.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}

// Min returns the minimum attainable reward over all timesteps. The
// reward ranges of Gym environments are not exposed through GoGym, so
// only environments with known reward ranges are supported.
func (g *GymEnv) Min() float64 {
	switch g.name {
	case MountainCarContinuousV0:
		return -0.144

	case PendulumV0:
		return -16.2736044
	}

	panic(fmt.Sprintf("min: unknown reward range for environment %v", g.name))
}

// Max returns the maximum attainable reward over all timesteps
func (g *GymEnv) Max() float64 {
	switch g.name {
	case MountainCarContinuousV0:
		return 100.0

	case PendulumV0:
		return 0.0
	}

	panic(fmt.Sprintf("max: unknown reward range for environment %v", g.name))
}

// Start implements the environment.Environment interface. Starting
// states are drawn inside the Gym environment, so this function
// panics.
func (g *GymEnv) Start() mat.Vector {
	panic("start: cannot calculate starting state for GymEnv")
}

// GetReward implements the environment.Environment interface. Rewards
// are computed inside the Gym environment, so this function panics.
func (g *GymEnv) GetReward(_, _, _ mat.Vector) float64 {
	panic("getReward: cannot calculate reward for transition in GymEnv")
}

// End implements the environment.Environment interface. Episode ends
// are computed inside the Gym environment, so this function panics.
func (g *GymEnv) End(*ts.TimeStep) bool {
	panic("end: cannot calculate ending for GymEnv")
}

// AtGoal implements the environment.Environment interface. This
// function panics.
func (g *GymEnv) AtGoal(mat.Matrix) bool {
	panic("atGoal: goal checking is not enabled for Gym environments")
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}
