package policy

import (
	"math"
	"math/rand"
	"testing"
)

func TestOrnsteinUhlenbeckRecurrence(t *testing.T) {
	dims := 3
	mu, theta, sigma := 0.0, 0.15, 0.2
	var seed int64 = 42

	noise := newOrnsteinUhlenbeck(dims, mu, theta, sigma, seed)

	// Replicate the process with an identical generator. Within each
	// step, dimensions consume increments in index order.
	rng := rand.New(rand.NewSource(seed))
	expected := make([]float64, dims)

	for step := 0; step < 10; step++ {
		for i, x := range expected {
			expected[i] = x + theta*(mu-x) + sigma*rng.Float64()
		}

		got := noise.sample()
		for i := range expected {
			if math.Abs(got[i]-expected[i]) > 1e-12 {
				t.Fatalf("sample: step %v dim %v: expected %v, got %v",
					step, i, expected[i], got[i])
			}
		}
	}
}

func TestOrnsteinUhlenbeckSameSeedSameNoise(t *testing.T) {
	a := newOrnsteinUhlenbeck(2, 0.0, 0.15, 0.2, 13)
	b := newOrnsteinUhlenbeck(2, 0.0, 0.15, 0.2, 13)

	for step := 0; step < 25; step++ {
		sampleA := a.sample()
		sampleB := b.sample()
		for i := range sampleA {
			if sampleA[i] != sampleB[i] {
				t.Fatalf("sample: processes with equal seeds diverged at "+
					"step %v dim %v", step, i)
			}
		}
	}
}

func TestOrnsteinUhlenbeckReset(t *testing.T) {
	mu := 0.5
	noise := newOrnsteinUhlenbeck(2, mu, 0.15, 0.2, 7)

	for step := 0; step < 5; step++ {
		noise.sample()
	}
	noise.reset()

	for i, x := range noise.state {
		if x != mu {
			t.Errorf("reset: expected dim %v at the mean %v, got %v", i, mu, x)
		}
	}
}
