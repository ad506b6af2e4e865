package network

import (
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// newTestMLP returns a small MLP with all weights initialized to the
// argument constant
func newTestMLP(t *testing.T, init G.InitWFn) NeuralNet {
	t.Helper()

	net, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{4},
		[]bool{true}, init, []*Activation{ReLU()}, Identity())
	if err != nil {
		t.Fatal(err)
	}
	return net
}

// learnableData returns the weight values of all learnables of a
// network as float64 slices
func learnableData(t *testing.T, net NeuralNet) [][]float64 {
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

func TestSetCopiesWeights(t *testing.T) {
	dest := newTestMLP(t, G.Zeroes())
	source := newTestMLP(t, G.Ones())

	if err := Set(dest, source); err != nil {
		t.Fatal(err)
	}

	for i, weights := range learnableData(t, dest) {
		for j, w := range weights {
			if w != 1.0 {
				t.Errorf("set: learnable %v weight %v: expected 1, got %v",
					i, j, w)
			}
		}
	}
}

func TestPolyakBlendsWeights(t *testing.T) {
	dest := newTestMLP(t, G.Zeroes())
	source := newTestMLP(t, G.Ones())
	tau := 0.1

	// θ_dest ← τ·θ_source + (1-τ)·θ_dest = 0.1·1 + 0.9·0
	if err := Polyak(dest, source, tau); err != nil {
		t.Fatal(err)
	}

	for i, weights := range learnableData(t, dest) {
		for j, w := range weights {
			if w != tau {
				t.Errorf("polyak: learnable %v weight %v: expected %v, got %v",
					i, j, tau, w)
			}
		}
	}

	// Source weights must not be modified by the blending
	for i, weights := range learnableData(t, source) {
		for j, w := range weights {
			if w != 1.0 {
				t.Errorf("polyak: source learnable %v weight %v modified "+
					"to %v", i, j, w)
			}
		}
	}
}

func TestPolyakWithUnitTauMatchesSet(t *testing.T) {
	dest := newTestMLP(t, G.Zeroes())
	source := newTestMLP(t, G.Ones())

	if err := Polyak(dest, source, 1.0); err != nil {
		t.Fatal(err)
	}

	for i, weights := range learnableData(t, dest) {
		for j, w := range weights {
			if w != 1.0 {
				t.Errorf("polyak: learnable %v weight %v: expected 1, got %v",
					i, j, w)
			}
		}
	}
}

func TestSetRejectsMismatchedArchitectures(t *testing.T) {
	dest := newTestMLP(t, G.Zeroes())

	source, err := NewMultiHeadMLP(3, 1, 2, G.NewGraph(), []int{8},
		[]bool{true}, G.Ones(), []*Activation{ReLU()}, Identity())
	if err != nil {
		t.Fatal(err)
	}

	if err := Set(dest, source); err == nil {
		t.Error("set: expected error for mismatched architectures")
	}
}
