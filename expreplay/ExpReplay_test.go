package expreplay

import (
	"testing"

	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/mat"
)

// testTransition returns a transition whose state, action, and reward
// are all filled with the value fill so that sampled batches can be
// traced back to the inserted transitions.
func testTransition(fill float64, featureSize, actionSize int) timestep.Transition {
	fillVec := func(n int) *mat.VecDense {
		data := make([]float64, n)
		for i := range data {
			data[i] = fill
		}
		return mat.NewVecDense(n, data)
	}

	return timestep.Transition{
		State:      fillVec(featureSize),
		Action:     fillVec(actionSize),
		Reward:     fill,
		Discount:   1.0,
		NextState:  fillVec(featureSize),
		NextAction: fillVec(actionSize),
	}
}

func TestDefaultCacheFifoOrder(t *testing.T) {
	featureSize := 2
	actionSize := 1

	replay, err := Factory(Fifo, Fifo, 1, 3, featureSize, actionSize, 1, 2,
		true, 42)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := replay.(*defaultCache); !ok {
		t.Fatalf("factory: expected ring buffer for FiFo remover of size 1, "+
			"got %T", replay)
	}

	for i := 1; i <= 3; i++ {
		err := replay.Add(testTransition(float64(i), featureSize, actionSize))
		if err != nil {
			t.Fatal(err)
		}
	}
	if replay.Capacity() != 3 {
		t.Errorf("capacity: expected 3, got %v", replay.Capacity())
	}

	// FiFo sampling returns the oldest transitions first
	state, action, reward, discount, nextState, nextAction, err := replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		want := float64(i + 1)
		if reward[i] != want {
			t.Errorf("sample: expected reward %v, got %v", want, reward[i])
		}
		if discount[i] != 1.0 {
			t.Errorf("sample: expected discount 1.0, got %v", discount[i])
		}
		for j := 0; j < featureSize; j++ {
			if state[i*featureSize+j] != want {
				t.Errorf("sample: expected state %v, got %v", want,
					state[i*featureSize+j])
			}
			if nextState[i*featureSize+j] != want {
				t.Errorf("sample: expected next state %v, got %v", want,
					nextState[i*featureSize+j])
			}
		}
		if action[i] != want || nextAction[i] != want {
			t.Errorf("sample: expected actions %v, got (%v, %v)", want,
				action[i], nextAction[i])
		}
	}

	// Adding to the full cache overwrites the oldest transition
	if err := replay.Add(testTransition(4, featureSize, actionSize)); err != nil {
		t.Fatal(err)
	}
	if replay.Capacity() != 3 {
		t.Errorf("capacity: expected 3 after overwrite, got %v",
			replay.Capacity())
	}

	_, _, reward, _, _, _, err = replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if reward[0] != 2 || reward[1] != 3 {
		t.Errorf("sample: expected oldest rewards (2, 3) after overwrite, "+
			"got (%v, %v)", reward[0], reward[1])
	}
}

func TestDefaultCacheUniformSample(t *testing.T) {
	featureSize := 3
	actionSize := 2
	batchSize := 4

	replay, err := Factory(Fifo, Uniform, 2, 10, featureSize, actionSize, 1,
		batchSize, false, 14)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 5; i++ {
		err := replay.Add(testTransition(float64(i), featureSize, actionSize))
		if err != nil {
			t.Fatal(err)
		}
	}

	state, action, reward, _, _, nextAction, err := replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if nextAction != nil {
		t.Error("sample: next actions should be nil when not stored")
	}
	if len(reward) != batchSize {
		t.Fatalf("sample: expected %v samples, got %v", batchSize, len(reward))
	}

	// Each sampled tuple must match one of the inserted transitions
	for i := 0; i < batchSize; i++ {
		fill := reward[i]
		if fill < 1 || fill > 5 {
			t.Errorf("sample: reward %v was never inserted", fill)
		}
		for j := 0; j < featureSize; j++ {
			if state[i*featureSize+j] != fill {
				t.Errorf("sample: state %v does not match reward %v",
					state[i*featureSize+j], fill)
			}
		}
		for j := 0; j < actionSize; j++ {
			if action[i*actionSize+j] != fill {
				t.Errorf("sample: action %v does not match reward %v",
					action[i*actionSize+j], fill)
			}
		}
	}
}

func TestCacheUniformRemover(t *testing.T) {
	featureSize := 1
	actionSize := 1

	replay, err := Factory(Uniform, Fifo, 1, 3, featureSize, actionSize, 1, 1,
		false, 11)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := replay.(*cache); !ok {
		t.Fatalf("factory: expected general cache for uniform remover, got %T",
			replay)
	}

	// Overfill the buffer so that the remover must free slots
	for i := 1; i <= 10; i++ {
		err := replay.Add(testTransition(float64(i), featureSize, actionSize))
		if err != nil {
			t.Fatal(err)
		}
		if replay.Capacity() > replay.MaxCapacity() {
			t.Fatalf("add: capacity %v exceeds maximum %v", replay.Capacity(),
				replay.MaxCapacity())
		}
	}
	if replay.Capacity() != 3 {
		t.Errorf("capacity: expected 3, got %v", replay.Capacity())
	}

	_, _, reward, _, _, _, err := replay.Sample()
	if err != nil {
		t.Fatal(err)
	}
	if reward[0] < 1 || reward[0] > 10 {
		t.Errorf("sample: reward %v was never inserted", reward[0])
	}
}

func TestSampleErrors(t *testing.T) {
	featureSize := 1
	actionSize := 1

	replay, err := Factory(Fifo, Uniform, 3, 5, featureSize, actionSize, 1, 2,
		false, 1)
	if err != nil {
		t.Fatal(err)
	}

	_, _, _, _, _, _, err = replay.Sample()
	if !IsEmptyBuffer(err) {
		t.Errorf("sample: expected empty buffer error, got %v", err)
	}

	if err := replay.Add(testTransition(1, featureSize, actionSize)); err != nil {
		t.Fatal(err)
	}
	_, _, _, _, _, _, err = replay.Sample()
	if !IsInsufficientSamples(err) {
		t.Errorf("sample: expected insufficient samples error, got %v", err)
	}
	if IsEmptyBuffer(err) {
		t.Error("sample: insufficient samples reported as empty buffer")
	}

	for i := 2; i <= 3; i++ {
		err := replay.Add(testTransition(float64(i), featureSize, actionSize))
		if err != nil {
			t.Fatal(err)
		}
	}
	_, _, _, _, _, _, err = replay.Sample()
	if err != nil {
		t.Errorf("sample: expected successful sample at min capacity, got %v",
			err)
	}
}

func TestOnlineCache(t *testing.T) {
	featureSize := 2
	actionSize := 1

	replay, err := Factory(Fifo, Fifo, 1, 1, featureSize, actionSize, 1, 1,
		true, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := replay.(*onlineCache); !ok {
		t.Fatalf("factory: expected online cache, got %T", replay)
	}

	for i := 1; i <= 2; i++ {
		fill := float64(i)
		if err := replay.Add(testTransition(fill, featureSize, actionSize)); err != nil {
			t.Fatal(err)
		}

		state, _, reward, _, _, _, err := replay.Sample()
		if err != nil {
			t.Fatal(err)
		}
		if reward[0] != fill || state[0] != fill {
			t.Errorf("sample: expected most recent transition %v, got "+
				"(%v, %v)", fill, reward[0], state[0])
		}
	}
}

func TestNewInvalidConfig(t *testing.T) {
	// Batch sizes larger than the buffer cannot be sampled
	_, err := Factory(Fifo, Uniform, 1, 5, 1, 1, 1, 10, false, 1)
	if err == nil {
		t.Error("new: expected error when batch size exceeds max capacity")
	}

	_, err = Factory(Fifo, Uniform, 0, 5, 1, 1, 1, 2, false, 1)
	if err == nil {
		t.Error("new: expected error when min capacity is not positive")
	}

	_, err = Factory(SelectorType("prioritized"), Uniform, 1, 5, 1, 1, 1, 2,
		false, 1)
	if err == nil {
		t.Error("factory: expected error for unknown selector type")
	}
}

func TestAddInvalidSize(t *testing.T) {
	replay, err := Factory(Fifo, Uniform, 1, 5, 3, 2, 1, 2, true, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := replay.Add(testTransition(1, 4, 2)); err == nil {
		t.Error("add: expected error for wrong feature size")
	}
	if err := replay.Add(testTransition(1, 3, 1)); err == nil {
		t.Error("add: expected error for wrong action size")
	}
	if replay.Capacity() != 0 {
		t.Errorf("add: rejected transitions should not be stored, capacity %v",
			replay.Capacity())
	}
}
