package lunarlander

import (
	"math"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// lunarLanderTask is a Task that needs access to the environment's
// physics to compute rewards and episode ends. The environment
// registers itself with the task on construction and resets the
// task's per-episode state on each environment reset.
type lunarLanderTask interface {
	environment.Task
	registerEnv(*lunarLander)
	reset()
}

// Land implements the task of landing the ship gently on the landing
// pad. Rewards follow the potential-based shaping of the OpenAI Gym
// lunar lander: moving toward the pad, slowing down, and levelling
// out are rewarded; spending fuel is penalized. Crashing the hull or
// flying out of bounds gives a reward of -100 and ends the episode;
// coming to rest on the moon gives +100 and ends the episode.
type Land struct {
	environment.Starter
	stepLimit environment.Ender

	prevShaping *float64

	env *lunarLander
}

// NewLand creates and returns a new Land task with episodes cut off
// after cutoff steps
func NewLand(s environment.Starter, cutoff int) lunarLanderTask {
	stepLimit := environment.NewStepLimit(cutoff)

	return &Land{Starter: s, stepLimit: stepLimit, prevShaping: new(float64)}
}

// registerEnv registers the physics environment on which the task is
// run
func (l *Land) registerEnv(env *lunarLander) {
	l.env = env
}

// reset clears the reward shaping of the previous episode
func (l *Land) reset() {
	l.prevShaping = new(float64)
}

// AtGoal returns whether both of the lander's legs are touching the
// moon
func (l *Land) AtGoal(state mat.Matrix) bool {
	leg1Contact, leg2Contact := l.env.GroundContact()
	return leg1Contact && leg2Contact
}

// GetReward returns the reward for transitioning to nextState
func (l *Land) GetReward(s, a, nextState mat.Vector) float64 {
	state := nextState.(*mat.VecDense).RawVector().Data

	reward := 0.0
	shaping := (-100 * math.Sqrt(state[0]*state[0]+state[1]*state[1])) +
		(-100 * math.Sqrt(state[2]*state[2]+state[3]*state[3])) +
		(-100 * math.Abs(state[4])) +
		(10 * state[6]) +
		(10 * state[7])

	if l.prevShaping != nil {
		reward = shaping - *l.prevShaping
	}
	*l.prevShaping = shaping

	// Less fuel spent is better
	reward -= (l.env.MPower() * 0.30)
	reward -= (l.env.SPower() * 0.03)

	if l.env.IsGameOver() || math.Abs(nextState.AtVec(0)) >= 1.0 {
		reward = -100
	} else if !l.env.IsAwake() {
		reward = 100
	}
	return reward
}

// Min returns the minimum attainable reward on a single timestep
func (l *Land) Min() float64 { return -100.0 }

// Max returns the maximum attainable reward on a single timestep
func (l *Land) Max() float64 { return 100.0 }

// RewardSpec returns the reward specification of the Task
func (l *Land) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{l.Min()})
	upperBound := mat.NewVecDense(1, []float64{l.Max()})

	return environment.NewSpec(shape, environment.Reward, lowerBound,
		upperBound, environment.Continuous)
}

// End determines whether the argument timestep ends the episode,
// adjusting the timestep in-place if so. Episodes end when the hull
// hits the moon, when the lander leaves the viewport along the x axis,
// when the lander comes to rest on the moon, or at the step limit.
func (l *Land) End(t *timestep.TimeStep) bool {
	if l.env.IsGameOver() || math.Abs(t.Observation.AtVec(0)) >= 1.0 {
		t.StepType = timestep.Last
		t.SetEnd(timestep.TerminalStateReached)
		return true
	}

	if !l.env.IsAwake() {
		t.StepType = timestep.Last
		t.SetEnd(timestep.TerminalStateReached)
		return true
	}

	return l.stepLimit.End(t)
}

// DefaultLandStarter returns the Starter conventionally used with the
// Land task: the lander starts centred at the top of the viewport with
// a random initial force of magnitude at most InitialRandom
func DefaultLandStarter(seed uint64) environment.UniformStarter {
	return environment.NewUniformStarter([]r1.Interval{
		{Min: InitialX, Max: InitialX},
		{Min: InitialY, Max: InitialY},
		{Min: InitialRandom, Max: InitialRandom},
	}, seed)
}
