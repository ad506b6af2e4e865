package policy

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goddpg/environment"
	"github.com/samuelfneumann/goddpg/environment/classiccontrol/pendulum"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/timestep"
	"gonum.org/v1/gonum/spatial/r1"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// testEnv returns a pendulum environment that always starts episodes
// at the state (0.5, 0.0), along with its first timestep
func testEnv(t *testing.T) (environment.Environment, timestep.TimeStep) {
	t.Helper()

	bounds := []r1.Interval{
		{Min: 0.5, Max: 0.5},
		{Min: 0.0, Max: 0.0},
	}
	starter := environment.NewUniformStarter(bounds, 1)
	task := pendulum.NewSwingUp(starter, 1000)
	env, firstStep := pendulum.NewContinuous(task, 0.99)
	return env, firstStep
}

// weightData returns the weight values of each learnable of a policy's
// network as float64 slices
func weightData(t *testing.T, net network.NeuralNet) [][]float64 {
	t.Helper()

	var data [][]float64
	for _, learnable := range net.Learnables() {
		weights, ok := learnable.Value().(*tensor.Dense)
		if !ok {
			t.Fatalf("learnable %v is not a dense tensor", learnable.Name())
		}
		data = append(data, weights.Data().([]float64))
	}
	return data
}

func TestDeterministicMLPGobRoundTrip(t *testing.T) {
	env, firstStep := testEnv(t)

	p, err := NewDeterministicMLP(env, 1, G.NewGraph(), []int{4},
		[]bool{true}, G.GlorotU(1.0), []*network.Activation{network.ReLU()},
		0.0, 0.15, 0.2, 0.75, 13)
	if err != nil {
		t.Fatal(err)
	}
	src := p.(*DeterministicMLP)

	encoded, err := src.GobEncode()
	if err != nil {
		t.Fatalf("gobencode: could not encode policy: %v", err)
	}

	decoded := new(DeterministicMLP)
	if err := decoded.GobDecode(encoded); err != nil {
		t.Fatalf("gobdecode: could not decode policy: %v", err)
	}

	// All network weights survive the round trip
	srcWeights := weightData(t, src.Network())
	decodedWeights := weightData(t, decoded.Network())
	if len(srcWeights) != len(decodedWeights) {
		t.Fatalf("gobdecode: expected %v learnables, got %v",
			len(srcWeights), len(decodedWeights))
	}
	for i := range srcWeights {
		for j, w := range srcWeights[i] {
			if decodedWeights[i][j] != w {
				t.Errorf("gobdecode: learnable %v weight %v: expected %v, "+
					"got %v", i, j, w, decodedWeights[i][j])
			}
		}
	}

	if decoded.NoiseScale() != src.NoiseScale() {
		t.Errorf("gobdecode: expected noise scale %v, got %v",
			src.NoiseScale(), decoded.NoiseScale())
	}

	// The decoded policy predicts the same actions as the original
	src.Eval()
	decoded.Eval()
	want := src.SelectAction(firstStep)
	got := decoded.SelectAction(firstStep)
	for i := 0; i < want.Len(); i++ {
		if math.Abs(got.AtVec(i)-want.AtVec(i)) > 1e-10 {
			t.Errorf("selectaction: expected action %v, got %v", want, got)
		}
	}
}
