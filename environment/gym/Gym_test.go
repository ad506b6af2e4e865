package gym_test

import (
	"testing"

	"github.com/samuelfneumann/goddpg/environment/gym"
	ts "github.com/samuelfneumann/goddpg/timestep"
	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
)

func TestNew(t *testing.T) {
	envs := []string{
		// Classic Control
		"MountainCarContinuous-v0",
		"Pendulum-v0",

		// MuJoCo
		"Hopper-v2",
		"HalfCheetah-v2",
		"InvertedPendulum-v2",
		"Reacher-v2",
		"Swimmer-v2",

		// Box2D
		"LunarLanderContinuous-v2",
		"BipedalWalker-v3",
	}

	for _, envName := range envs {
		// Create GymEnv
		env, step, err := gym.New(envName, 0.99, 123)
		if err != nil {
			// The Gym suite needs a working Python installation with
			// the gym package, which not every machine has
			t.Skipf("env %v: %v", envName, err)
		}
		if (env == nil || step == ts.TimeStep{}) {
			t.Error("new: env or step should not be nil if err is nil")
		}

		// Take a bunch of steps in the environment to ensure it works
		size := env.ActionSpec().LowerBound.Len()
		for i := 0; i < 15; i++ {
			next, done := env.Step(mat.NewVecDense(size, nil))
			if (next == ts.TimeStep{}) {
				t.Errorf("step: timestep %v should be non-nil", i)
			}

			if done {
				if next := env.Reset(); (next == ts.TimeStep{}) {
					t.Error("reset: start timestep should be non-nil")
				}
			}
		}

		// Reset the environment
		if step = env.Reset(); (step == ts.TimeStep{}) {
			t.Error("reset: start timestep should be non-nil")
		}

		// Check that the spec functions work
		env.ObservationSpec()
		env.ActionSpec()
		env.DiscountSpec()

		// Close the environment
		env.(*gym.GymEnv).Close()
	}
	// Close the package
	gogym.Close()
}
