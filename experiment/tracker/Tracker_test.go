package tracker

import (
	"path/filepath"
	"testing"

	ts "github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
)

// episode returns the timesteps of an episode with the argument
// rewards. The first timestep carries no reward and the last timestep
// in the returned slice ends the episode.
func episode(rewards ...float64) []ts.TimeStep {
	obs := mat.NewVecDense(1, nil)

	steps := []ts.TimeStep{ts.New(ts.First, 0.0, 1.0, obs, 0)}
	for i, r := range rewards {
		stepType := ts.Mid
		if i == len(rewards)-1 {
			stepType = ts.Last
		}
		steps = append(steps, ts.New(stepType, r, 1.0, obs, i+1))
	}
	return steps
}

func TestReturnTracksEpisodicReturns(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")
	saver := NewReturn(filename)

	episodes := [][]ts.TimeStep{
		episode(-1.0, -1.0, -1.0),
		episode(1.0, 2.0, 3.0, 4.0),
	}
	for _, steps := range episodes {
		for _, step := range steps {
			saver.Track(step)
		}
	}
	saver.Save()

	returns := LoadData(filename)
	expected := []float64{-3.0, 10.0}

	if len(returns) != len(expected) {
		t.Fatalf("save: expected %v returns, got %v", len(expected),
			len(returns))
	}
	for i := range expected {
		if returns[i] != expected[i] {
			t.Errorf("save: episode %v: expected return %v, got %v", i,
				expected[i], returns[i])
		}
	}
}

func TestReturnPanicsOnNonSequentialTimeSteps(t *testing.T) {
	saver := NewReturn(filepath.Join(t.TempDir(), "data.bin"))

	obs := mat.NewVecDense(1, nil)
	saver.Track(ts.New(ts.First, 0.0, 1.0, obs, 0))

	defer func() {
		if recover() == nil {
			t.Error("track: expected panic on non-sequential timesteps")
		}
	}()
	saver.Track(ts.New(ts.Mid, 1.0, 1.0, obs, 5))
}

func TestEpisodeLengthTracksCompletedEpisodes(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")
	saver := NewEpisodeLength(filename)

	episodes := [][]ts.TimeStep{
		episode(-1.0, -1.0, -1.0),
		episode(-1.0),
	}
	for _, steps := range episodes {
		for _, step := range steps {
			saver.Track(step)
		}
	}

	// An unfinished episode should not be recorded
	obs := mat.NewVecDense(1, nil)
	saver.Track(ts.New(ts.First, 0.0, 1.0, obs, 0))
	saver.Track(ts.New(ts.Mid, -1.0, 1.0, obs, 1))

	saver.Save()

	lengths := LoadIData(filename)
	expected := []int{3, 1}

	if len(lengths) != len(expected) {
		t.Fatalf("save: expected %v lengths, got %v", len(expected),
			len(lengths))
	}
	for i := range expected {
		if lengths[i] != expected[i] {
			t.Errorf("save: episode %v: expected length %v, got %v", i,
				expected[i], lengths[i])
		}
	}
}

// staticStepper is a Stepper with a settable current timestep
type staticStepper struct {
	step ts.TimeStep
}

func (s staticStepper) CurrentTimeStep() ts.TimeStep {
	return s.step
}

func TestRegisterTracksEnvironmentTimeSteps(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "data.bin")

	obs := mat.NewVecDense(1, nil)
	env := &staticStepper{ts.New(ts.First, 0.0, 1.0, obs, 0)}

	saver := Register(NewReturn(filename), env)

	// The argument timestep should be ignored in favour of the
	// environment's current timestep
	ignored := ts.New(ts.Mid, 100.0, 1.0, obs, 73)

	saver.Track(ignored)
	env.step = ts.New(ts.Mid, -1.0, 1.0, obs, 1)
	saver.Track(ignored)
	env.step = ts.New(ts.Last, -2.0, 1.0, obs, 2)
	saver.Track(ignored)
	saver.Save()

	returns := LoadData(filename)
	if len(returns) != 1 || returns[0] != -3.0 {
		t.Errorf("track: expected returns [-3], got %v", returns)
	}
}
