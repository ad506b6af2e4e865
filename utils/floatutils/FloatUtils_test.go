package floatutils

import (
	"math"
	"testing"
)

func TestClip(t *testing.T) {
	tests := []struct{ value, min, max, want float64 }{
		{0.5, -1.0, 1.0, 0.5},
		{-3.0, -1.0, 1.0, -1.0},
		{3.0, -1.0, 1.0, 1.0},
		{1.0, -1.0, 1.0, 1.0},
	}

	for _, test := range tests {
		got := Clip(test.value, test.min, test.max)
		if got != test.want {
			t.Errorf("clip(%v, %v, %v): expected %v, got %v", test.value,
				test.min, test.max, test.want, got)
		}
	}
}

func TestSign(t *testing.T) {
	tests := []struct{ value, want float64 }{
		{13.2, 1.0},
		{-0.001, -1.0},
		{0.0, 0.0},
	}

	for _, test := range tests {
		if got := Sign(test.value); got != test.want {
			t.Errorf("sign(%v): expected %v, got %v", test.value, test.want,
				got)
		}
	}
}

func TestWrap(t *testing.T) {
	tests := []struct{ value, min, max, want float64 }{
		{0.0, -math.Pi, math.Pi, 0.0},
		{3 * math.Pi, -math.Pi, math.Pi, -math.Pi},
		{-3 * math.Pi, -math.Pi, math.Pi, -math.Pi},
		{1.5, 0.0, 1.0, 0.5},
		{-0.25, 0.0, 1.0, 0.75},
	}

	for _, test := range tests {
		got := Wrap(test.value, test.min, test.max)
		if math.Abs(got-test.want) > 1e-12 {
			t.Errorf("wrap(%v, %v, %v): expected %v, got %v", test.value,
				test.min, test.max, test.want, got)
		}
	}
}
