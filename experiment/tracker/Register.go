package tracker

import (
	"github.com/samuelfneumann/goddpg/timestep"
)

// Stepper is an environment that exposes its most recent TimeStep
type Stepper interface {
	CurrentTimeStep() timestep.TimeStep
}

// registeredTracker registers an environment with some Tracker so
// that the Tracker tracks data from the registered environment only.
// registeredTracker itself is a Tracker.
//
// The Track() and Save() methods of a registeredTracker call those of
// the embedded Tracker. The only difference is that registeredTracker
// calls the Track() method of the embedded Tracker using the most
// recent TimeStep of the registered environment, and the argument to
// registeredTracker.Track() is ignored.
//
// This may be useful if an experiment is run using an environment
// wrapper as the environment but the data from the wrapped environment
// needs to be tracked.
type registeredTracker struct {
	Tracker
	env Stepper
}

// Register registers a new Tracker with an environment, to track data
// from the registered environment only. Register returns a copy of the
// argument Tracker that is registered with the argument environment.
//
// Note: the underlying concrete type of the registered Tracker is
// lost when registering an environment with a Tracker.
func Register(t Tracker, env Stepper) Tracker {
	return &registeredTracker{t, env}
}

// Track calls Track() on the embedded Tracker using the most recent
// TimeStep from the registered environment.
//
// The TimeStep argument to this function is completely ignored, and
// is only there to ensure registeredTracker follows the Tracker
// interface.
func (r *registeredTracker) Track(timestep.TimeStep) {
	step := r.env.CurrentTimeStep()
	r.Tracker.Track(step)
}
