// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	env "github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/environment/box2d/lunarlander"
	"github.com/samuelfneumann/goddpg/environment/classiccontrol/mountaincar"
	"github.com/samuelfneumann/goddpg/environment/classiccontrol/pendulum"
	"github.com/samuelfneumann/goddpg/environment/gym"
	ts "github.com/samuelfneumann/goddpg/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	MountainCar EnvName = "MountainCar"
	Pendulum    EnvName = "Pendulum"
	LunarLander EnvName = "LunarLander"
)

// TaskName stores the tasks that can be configured with this package.
// Note that not all tasks can be used with all environments. The tasks
// that can be used with each environment are as follows:
//
//	Environment			Task
//	MountainCar			Goal
//	Pendulum			SwingUp
//	LunarLander			Land
type TaskName string

// Tasks available for configuration
const (
	Goal    TaskName = "Goal"
	SwingUp TaskName = "SwingUp"
	Land    TaskName = "Land"
)

// Config implements a specific configuration of a specific environment
// and specific task. Not all environments can have all tasks.
//
// When Gym is true, the Environment field instead holds the name of an
// OpenAI Gym environment, which is run with its default task and
// episode cutoff.
type Config struct {
	Environment       EnvName
	Task              TaskName
	ContinuousActions bool
	EpisodeCutoff     uint
	Discount          float64
	Gym               bool
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, taskName TaskName, continuousActions bool,
	episodeCutoff uint, discount float64, gymEnv bool) Config {
	return Config{
		Environment:       envName,
		Task:              taskName,
		ContinuousActions: continuousActions,
		EpisodeCutoff:     episodeCutoff,
		Discount:          discount,
		Gym:               gymEnv,
	}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep) {
	if c.Gym {
		e, step, err := gym.New(string(c.Environment), c.Discount, seed)
		if err != nil {
			panic(fmt.Sprintf("create: could not create gym environment "+
				"%v: %v", c.Environment, err))
		}
		return e, step
	}

	if !c.ContinuousActions {
		panic("create: only continuous-action environments are implemented")
	}

	switch c.Environment {
	case MountainCar:
		return CreateMountainCar(c.Task, int(c.EpisodeCutoff), seed,
			c.Discount)

	case Pendulum:
		return CreatePendulum(c.Task, int(c.EpisodeCutoff), seed, c.Discount)

	case LunarLander:
		return CreateLunarLander(c.Task, int(c.EpisodeCutoff), seed,
			c.Discount)
	}

	panic(fmt.Sprintf("create: cannot create environment %v, no such "+
		"environment", c.Environment))
}

// CreateMountainCar is a factory for creating the MountainCar
// environment with default physical parameters and default task
// parameters.
func CreateMountainCar(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep) {
	s := mountaincar.DefaultGoalStarter(seed)

	var task env.Task
	switch taskName {
	case Goal:
		task = mountaincar.NewGoal(s, cutoff, mountaincar.GoalPosition)

	default:
		panic(fmt.Sprintf("createMountainCar: MountainCar environment has "+
			"no task %v", taskName))
	}

	return mountaincar.NewContinuous(task, discount)
}

// CreatePendulum is a factory for creating the Pendulum environment
// with default physical parameters and default task parameters.
func CreatePendulum(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep) {
	s := pendulum.DefaultSwingUpStarter(seed)

	var task env.Task
	switch taskName {
	case SwingUp:
		task = pendulum.NewSwingUp(s, cutoff)

	default:
		panic(fmt.Sprintf("createPendulum: Pendulum environment has "+
			"no task %v", taskName))
	}

	return pendulum.NewContinuous(task, discount)
}

// CreateLunarLander is a factory for creating the LunarLander
// environment with default physical parameters and default task
// parameters.
func CreateLunarLander(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep) {
	s := lunarlander.DefaultLandStarter(seed)

	var task env.Task
	switch taskName {
	case Land:
		task = lunarlander.NewLand(s, cutoff)

	default:
		panic(fmt.Sprintf("createLunarLander: LunarLander environment has "+
			"no task %v", taskName))
	}

	return lunarlander.NewContinuous(task, discount, seed)
}
