package policy

import (
	"math/rand"
)

// ornsteinUhlenbeck implements an Ornstein-Uhlenbeck process for
// generating temporally correlated exploration noise. The process
// holds one value per action dimension. Each value drifts towards the
// mean μ at rate θ while being perturbed by increments of scale σ:
//
//	x ← x + θ·(μ - x) + σ·u		u ~ Uniform[0, 1)
type ornsteinUhlenbeck struct {
	mu    float64
	theta float64
	sigma float64

	state []float64
	rng   *rand.Rand
}

// newOrnsteinUhlenbeck returns a new Ornstein-Uhlenbeck process over
// dims action dimensions.
func newOrnsteinUhlenbeck(dims int, mu, theta, sigma float64,
	seed int64) *ornsteinUhlenbeck {
	noise := &ornsteinUhlenbeck{
		mu:    mu,
		theta: theta,
		sigma: sigma,
		state: make([]float64, dims),
		rng:   rand.New(rand.NewSource(seed)),
	}
	noise.reset()

	return noise
}

// reset restores the process state to the mean μ
func (o *ornsteinUhlenbeck) reset() {
	for i := range o.state {
		o.state[i] = o.mu
	}
}

// sample advances the process by one step and returns its new state.
// The returned slice is owned by the process and is valid only until
// the next call to sample or reset.
func (o *ornsteinUhlenbeck) sample() []float64 {
	for i, x := range o.state {
		o.state[i] = x + o.theta*(o.mu-x) + o.sigma*o.rng.Float64()
	}
	return o.state
}
